package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testAddress = "0x1111111111111111111111111111111111111111111111111111111111112222"

type fakeBridge struct {
	mu        sync.Mutex
	accounts  []Account
	err       error
	execErr   error
	digest    string
	requests  []SignRequest
	blockExec bool
}

func (b *fakeBridge) RequestAccounts(ctx context.Context) ([]Account, error) {
	return b.accounts, b.err
}

func (b *fakeBridge) GetAccounts(ctx context.Context) ([]Account, error) {
	return b.accounts, b.err
}

func (b *fakeBridge) SignAndExecuteTransactionBlock(ctx context.Context, req SignRequest) (SignResult, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if b.blockExec {
		<-ctx.Done()
		return SignResult{}, ctx.Err()
	}
	if b.execErr != nil {
		return SignResult{}, b.execErr
	}
	return SignResult{Digest: b.digest}, nil
}

type fakeBalances struct {
	mist  uint64
	err   error
	calls int
}

func (f *fakeBalances) Balance(ctx context.Context, owner string) (uint64, error) {
	f.calls++
	return f.mist, f.err
}

func newTestWallet(b Bridge, bal BalanceClient) *Wallet {
	return New(b, bal, Options{PackageID: "0xpkg", Network: "testnet", Timeout: time.Second}, zerolog.Nop())
}

func walletError(t *testing.T, err error) *WalletError {
	t.Helper()
	var we *WalletError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WalletError, got %v", err)
	}
	return we
}

func TestWallet_Connect(t *testing.T) {
	bridge := &fakeBridge{accounts: []Account{{Address: testAddress}, {Address: "0xother"}}}
	bal := &fakeBalances{mist: 2_500_000_000}
	w := newTestWallet(bridge, bal)

	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := w.Status()
	if !s.Connected || s.Connecting || s.Address != testAddress {
		t.Errorf("unexpected status: %+v", s)
	}
	if s.Balance != 2.5 {
		t.Errorf("balance = %v, want 2.5", s.Balance)
	}
	if s.ShortAddress != "0x1111...2222" {
		t.Errorf("short address = %q", s.ShortAddress)
	}
}

func TestWallet_ConnectFailures(t *testing.T) {
	tests := []struct {
		name   string
		bridge Bridge
		want   string
	}{
		{"no bridge", nil, MsgWalletNotFound},
		{"bridge detached", &fakeBridge{err: ErrNoBridge}, MsgWalletNotFound},
		{"no accounts", &fakeBridge{}, MsgNoAccounts},
		{"rejected", &fakeBridge{err: &BridgeError{Code: "REJECTED", Message: "user rejected"}}, "wallet: REJECTED: user rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWallet(tt.bridge, nil)
			we := walletError(t, w.Connect(context.Background()))
			if we.Message != tt.want {
				t.Errorf("message = %q, want %q", we.Message, tt.want)
			}
			if s := w.Status(); s.Connected || s.Connecting || s.Address != "" {
				t.Errorf("wallet should stay disconnected: %+v", s)
			}
		})
	}
}

func TestWallet_Init(t *testing.T) {
	w := newTestWallet(&fakeBridge{accounts: []Account{{Address: testAddress}}}, &fakeBalances{mist: MistPerSui})
	w.Init(context.Background())
	if s := w.Status(); !s.Connected || s.Balance != 1 {
		t.Errorf("init should adopt the authorized account: %+v", s)
	}

	w = newTestWallet(&fakeBridge{err: errors.New("boom")}, nil)
	w.Init(context.Background())
	if w.Status().Connected {
		t.Error("init failure should leave the wallet disconnected")
	}
}

func TestWallet_RefreshBalance_KeepsPreviousOnError(t *testing.T) {
	bal := &fakeBalances{mist: 3 * MistPerSui}
	w := newTestWallet(&fakeBridge{accounts: []Account{{Address: testAddress}}}, bal)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	bal.err = errors.New("rpc down")
	w.RefreshBalance(context.Background())
	if got := w.Status().Balance; got != 3 {
		t.Errorf("balance = %v, want 3", got)
	}
}

func TestWallet_Disconnect(t *testing.T) {
	w := newTestWallet(&fakeBridge{accounts: []Account{{Address: testAddress}}}, &fakeBalances{mist: 5})
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	w.Disconnect()
	if s := w.Status(); s.Connected || s.Address != "" || s.Balance != 0 {
		t.Errorf("unexpected status after disconnect: %+v", s)
	}
	_, err := w.ExecuteTransaction(context.Background(), NewTransactionBlock())
	if we := walletError(t, err); we.Message != MsgNotConnected {
		t.Errorf("message = %q", we.Message)
	}
}

func TestWallet_ExecuteTransaction(t *testing.T) {
	bridge := &fakeBridge{accounts: []Account{{Address: testAddress}}, digest: "9xDigest"}
	w := newTestWallet(bridge, nil)

	_, err := w.ExecuteTransaction(context.Background(), NewTransactionBlock())
	if we := walletError(t, err); we.Message != MsgNotConnected {
		t.Fatalf("message = %q", we.Message)
	}

	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	for _, txb := range []*TransactionBlock{nil, NewTransactionBlock()} {
		_, err := w.ExecuteTransaction(context.Background(), txb)
		if we := walletError(t, err); we.Message != MsgEmptyTransaction {
			t.Errorf("block %+v: message = %q", txb, we.Message)
		}
	}
	if len(bridge.requests) != 0 {
		t.Fatalf("empty blocks reached the wallet: %d", len(bridge.requests))
	}

	digest, err := w.PayInvoice(context.Background(), PayInvoiceParams{InvoiceID: "INV-003", Amount: 1.5})
	if err != nil || digest != "9xDigest" {
		t.Fatalf("pay invoice: %q, %v", digest, err)
	}
	req := bridge.requests[0]
	if !req.Options.ShowEffects || !req.Options.ShowObjectChanges {
		t.Errorf("options not set: %+v", req.Options)
	}
	if len(req.TransactionBlock.Commands) != 2 || req.TransactionBlock.Commands[1].Target != "0xpkg::healthcare::pay_invoice" {
		t.Errorf("unexpected block: %+v", req.TransactionBlock)
	}
}

func TestWallet_ExecuteTransaction_Failures(t *testing.T) {
	bridge := &fakeBridge{accounts: []Account{{Address: testAddress}}, execErr: &BridgeError{Code: "INSUFFICIENT_GAS", Message: "gas"}}
	w := newTestWallet(bridge, nil)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err := w.CreateInvoice(context.Background(), CreateInvoiceParams{PatientID: "1", DoctorID: "4", Service: "Consult", Amount: 2})
	we := walletError(t, err)
	if we.Message != MsgTransactionFailed || we.Code != "INSUFFICIENT_GAS" {
		t.Errorf("unexpected error: %+v", we)
	}

	bridge.execErr = nil
	bridge.blockExec = true
	w.opts.Timeout = 20 * time.Millisecond
	_, err = w.CreatePrescription(context.Background(), CreatePrescriptionParams{PatientID: "1", DoctorID: "4", MedicationName: "x", Dosage: "y", Frequency: "z"})
	if we := walletError(t, err); we.Code != CodeTimeout {
		t.Errorf("code = %q, want %q", we.Code, CodeTimeout)
	}
}

type staticBridges struct{ bridge Bridge }

func (s staticBridges) BridgeFor(string) Bridge { return s.bridge }

func TestRegistry_PerSession(t *testing.T) {
	bridge := &fakeBridge{accounts: []Account{{Address: testAddress}}}
	r := NewRegistry(staticBridges{bridge}, nil, Options{Timeout: time.Second}, zerolog.Nop())
	ctx := context.Background()

	a := r.Get(ctx, principal("s1"))
	if r.Get(ctx, principal("s1")) != a {
		t.Error("same session should get the same wallet")
	}
	if r.Get(ctx, principal("s2")) == a {
		t.Error("different sessions should get different wallets")
	}
	if !a.Status().Connected {
		t.Error("new wallet should be initialized from authorized accounts")
	}
	r.Remove("s1")
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
}

func TestRegistry_IdleSweep(t *testing.T) {
	r := NewRegistry(staticBridges{nil}, nil, Options{Timeout: time.Second, IdleTimeout: time.Hour}, zerolog.Nop())
	t.Cleanup(r.Close)
	ctx := context.Background()
	now := time.Date(2024, 1, 26, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		r.Get(ctx, principal(fmt.Sprintf("register-%d", i)))
	}
	now = now.Add(50 * time.Minute)
	active := r.Get(ctx, principal("register-0"))

	now = now.Add(20 * time.Minute)
	if n := r.cleanup(); n != 9 {
		t.Errorf("swept %d wallets, want 9", n)
	}
	if r.Len() != 1 || r.Get(ctx, principal("register-0")) != active {
		t.Errorf("recently used wallet should survive, len = %d", r.Len())
	}
	r.Close()
	r.Close()
}
