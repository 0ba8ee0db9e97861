package wallet

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/ledger"
)

func TestSubmissionCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := NewSubmissionCounter(reg).Hook()

	ctx := context.Background()
	for _, kind := range []string{KindPayment, KindPayment, KindInvoice} {
		if err := hook(ctx, auth.Principal{UserID: "1"}, ledger.Receipt{Kind: kind, Network: "testnet"}); err != nil {
			t.Fatalf("hook: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "medipay_wallet_transactions_submitted_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "kind" {
					got[lp.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if got[KindPayment] != 2 || got[KindInvoice] != 1 {
		t.Errorf("counts = %v", got)
	}
}
