package wallet

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/ledger"
)

// SubmissionCounter counts journaled transactions by kind and network.
type SubmissionCounter struct {
	submitted *prometheus.CounterVec
}

func NewSubmissionCounter(reg prometheus.Registerer) *SubmissionCounter {
	s := &SubmissionCounter{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipay",
			Subsystem: "wallet",
			Name:      "transactions_submitted_total",
			Help:      "Transactions executed through the wallet bridge",
		}, []string{"kind", "network"}),
	}
	reg.MustRegister(s.submitted)
	return s
}

// Hook returns a SubmitHook that increments the counter.
func (s *SubmissionCounter) Hook() SubmitHook {
	return func(_ context.Context, _ auth.Principal, r ledger.Receipt) error {
		s.submitted.WithLabelValues(r.Kind, r.Network).Inc()
		return nil
	}
}
