package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is the wallet state shown in the dashboard header.
type Status struct {
	Connected    bool    `json:"is_connected"`
	Connecting   bool    `json:"is_connecting"`
	Address      string  `json:"address,omitempty"`
	ShortAddress string  `json:"short_address,omitempty"`
	Balance      float64 `json:"balance"`
	Network      string  `json:"network"`
	ExplorerURL  string  `json:"explorer_url,omitempty"`
}

// Options configures a Wallet.
type Options struct {
	PackageID   string
	Network     string
	Timeout     time.Duration
	IdleTimeout time.Duration
}

// Wallet is the wallet state of one user session. Every bridge and RPC call
// runs under Options.Timeout.
type Wallet struct {
	bridge   Bridge
	balances BalanceClient
	opts     Options
	logger   zerolog.Logger

	mu         sync.Mutex
	connected  bool
	connecting bool
	address    string
	balance    float64
	signer     Bridge
}

func New(bridge Bridge, balances BalanceClient, opts Options, logger zerolog.Logger) *Wallet {
	if opts.Network == "" {
		opts.Network = DefaultNetwork
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Wallet{
		bridge:   bridge,
		balances: balances,
		opts:     opts,
		logger:   logger.With().Str("component", "wallet").Logger(),
	}
}

func (w *Wallet) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, w.opts.Timeout)
}

// Init adopts an account the extension already authorized. Failures are
// logged and leave the wallet disconnected.
func (w *Wallet) Init(ctx context.Context) {
	if w.bridge == nil {
		return
	}
	cctx, cancel := w.withTimeout(ctx)
	accounts, err := w.bridge.GetAccounts(cctx)
	cancel()
	if err != nil {
		if !errors.Is(err, ErrNoBridge) {
			w.logger.Error().Err(err).Msg("failed to initialize wallet")
		}
		return
	}
	if len(accounts) == 0 {
		return
	}
	w.adopt(accounts[0].Address)
	w.RefreshBalance(ctx)
}

// Connect asks the extension for accounts and adopts the first one.
func (w *Wallet) Connect(ctx context.Context) error {
	w.mu.Lock()
	w.connecting = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.connecting = false
		w.mu.Unlock()
	}()

	if w.bridge == nil {
		return &WalletError{Message: MsgWalletNotFound}
	}
	cctx, cancel := w.withTimeout(ctx)
	accounts, err := w.bridge.RequestAccounts(cctx)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNoBridge) {
			return &WalletError{Message: MsgWalletNotFound}
		}
		w.logger.Error().Err(err).Msg("failed to connect wallet")
		return &WalletError{Message: err.Error(), Code: errorCode(err)}
	}
	if len(accounts) == 0 {
		return &WalletError{Message: MsgNoAccounts}
	}

	w.adopt(accounts[0].Address)
	w.logger.Info().Str("address", FormatAddress(accounts[0].Address)).Msg("wallet connected")
	w.RefreshBalance(ctx)
	return nil
}

func (w *Wallet) adopt(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.address = address
	w.connected = true
	w.signer = w.bridge
}

func (w *Wallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.address = ""
	w.connected = false
	w.signer = nil
	w.balance = 0
}

// RefreshBalance reloads the SUI balance of the connected address. Failures
// are logged and keep the previous balance.
func (w *Wallet) RefreshBalance(ctx context.Context) {
	w.mu.Lock()
	address := w.address
	w.mu.Unlock()
	if address == "" || w.balances == nil {
		return
	}

	cctx, cancel := w.withTimeout(ctx)
	defer cancel()
	mist, err := w.balances.Balance(cctx, address)
	if err != nil {
		w.logger.Error().Err(err).Str("address", FormatAddress(address)).Msg("failed to refresh balance")
		return
	}
	w.mu.Lock()
	if w.address == address {
		w.balance = MistToSui(mist)
	}
	w.mu.Unlock()
}

// ExecuteTransaction has the wallet sign and execute txb and returns the
// transaction digest.
func (w *Wallet) ExecuteTransaction(ctx context.Context, txb *TransactionBlock) (string, error) {
	w.mu.Lock()
	signer := w.signer
	w.mu.Unlock()
	if signer == nil {
		return "", &WalletError{Message: MsgNotConnected}
	}
	if txb.Empty() {
		return "", &WalletError{Message: MsgEmptyTransaction}
	}

	cctx, cancel := w.withTimeout(ctx)
	defer cancel()
	res, err := signer.SignAndExecuteTransactionBlock(cctx, SignRequest{
		TransactionBlock: txb,
		Options:          ExecuteOptions{ShowEffects: true, ShowObjectChanges: true},
	})
	if err != nil {
		w.logger.Error().Err(err).Msg("transaction failed")
		return "", &WalletError{Message: MsgTransactionFailed, Code: errorCode(err)}
	}
	w.logger.Info().Str("digest", res.Digest).Int("commands", len(txb.Commands)).Msg("transaction executed")
	return res.Digest, nil
}

func (w *Wallet) healthcare() *HealthcareTransaction {
	return NewHealthcareTransaction(w.opts.PackageID)
}

func (w *Wallet) CreateInvoice(ctx context.Context, p CreateInvoiceParams) (string, error) {
	return w.ExecuteTransaction(ctx, w.healthcare().CreateInvoice(p).TransactionBlock())
}

func (w *Wallet) PayInvoice(ctx context.Context, p PayInvoiceParams) (string, error) {
	return w.ExecuteTransaction(ctx, w.healthcare().PayInvoice(p).TransactionBlock())
}

func (w *Wallet) CreateMedicalRecord(ctx context.Context, p CreateMedicalRecordParams) (string, error) {
	return w.ExecuteTransaction(ctx, w.healthcare().CreateMedicalRecord(p).TransactionBlock())
}

func (w *Wallet) CreatePrescription(ctx context.Context, p CreatePrescriptionParams) (string, error) {
	return w.ExecuteTransaction(ctx, w.healthcare().CreatePrescription(p).TransactionBlock())
}

func (w *Wallet) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{
		Connected:  w.connected,
		Connecting: w.connecting,
		Address:    w.address,
		Balance:    w.balance,
		Network:    w.opts.Network,
	}
	if w.address != "" {
		s.ShortAddress = FormatAddress(w.address)
		s.ExplorerURL = ExplorerAddressURL(w.address, w.opts.Network)
	}
	return s
}

// Network is the network the wallet submits to.
func (w *Wallet) Network() string {
	return w.opts.Network
}
