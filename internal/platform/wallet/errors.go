package wallet

import (
	"context"
	"errors"
	"fmt"
)

// User-facing wallet failure messages.
const (
	MsgWalletNotFound    = "Sui wallet not found. Please install a Sui wallet extension."
	MsgNoAccounts        = "No accounts found. Please create an account in your wallet."
	MsgNotConnected      = "Wallet not connected"
	MsgTransactionFailed = "Transaction failed"
	MsgEmptyTransaction  = "Transaction has no commands"
)

// CodeTimeout is the code of a wallet error caused by the call deadline.
const CodeTimeout = "TIMEOUT"

// ErrNoBridge is returned by a bridge whose wallet extension is not attached.
var ErrNoBridge = errors.New("no wallet bridge attached")

// WalletError is the one error type surfaced by wallet operations.
type WalletError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *WalletError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// BridgeError is an error reported by the wallet extension itself.
type BridgeError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *BridgeError) Error() string {
	if e.Code == "" {
		return "wallet: " + e.Message
	}
	return fmt.Sprintf("wallet: %s: %s", e.Code, e.Message)
}

// errorCode extracts the code to carry on a WalletError.
func errorCode(err error) string {
	var be *BridgeError
	switch {
	case errors.As(err, &be):
		return be.Code
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return ""
	}
}
