// Package wallet connects dashboard users to their browser wallet extension
// and submits healthcare transactions through it.
package wallet

import (
	"context"
	"encoding/json"
)

type Account struct {
	Address string `json:"address"`
}

// ExecuteOptions selects what the wallet returns after execution.
type ExecuteOptions struct {
	ShowEffects       bool `json:"showEffects"`
	ShowObjectChanges bool `json:"showObjectChanges"`
}

type SignRequest struct {
	TransactionBlock *TransactionBlock `json:"transactionBlock"`
	Options          ExecuteOptions    `json:"options"`
}

type SignResult struct {
	Digest        string          `json:"digest"`
	Effects       json.RawMessage `json:"effects,omitempty"`
	ObjectChanges json.RawMessage `json:"objectChanges,omitempty"`
}

// Bridge is the contract of the wallet extension. A bridge whose extension
// is not attached returns ErrNoBridge.
type Bridge interface {
	RequestAccounts(ctx context.Context) ([]Account, error)
	GetAccounts(ctx context.Context) ([]Account, error)
	SignAndExecuteTransactionBlock(ctx context.Context, req SignRequest) (SignResult, error)
}
