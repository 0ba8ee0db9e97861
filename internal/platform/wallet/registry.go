package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

// BridgeSource hands out the bridge of a user.
type BridgeSource interface {
	BridgeFor(userID string) Bridge
}

type registryEntry struct {
	wallet   *Wallet
	lastUsed time.Time
}

// Registry keeps one Wallet per session. With a positive idle timeout,
// wallets unused for that long are swept every minute; Close stops the
// sweeper.
type Registry struct {
	bridges  BridgeSource
	balances BalanceClient
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
	done     chan struct{}

	mu      sync.Mutex
	wallets map[string]*registryEntry
}

func NewRegistry(bridges BridgeSource, balances BalanceClient, opts Options, logger zerolog.Logger) *Registry {
	r := &Registry{
		bridges:  bridges,
		balances: balances,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
		wallets:  make(map[string]*registryEntry),
	}
	if opts.IdleTimeout > 0 {
		go r.cleanupLoop()
	}
	return r
}

// Get returns the wallet of the principal's session, creating and
// initializing it on first use.
func (r *Registry) Get(ctx context.Context, p auth.Principal) *Wallet {
	key := p.SessionID
	if key == "" {
		key = p.UserID
	}

	r.mu.Lock()
	e, ok := r.wallets[key]
	if !ok {
		var bridge Bridge
		if r.bridges != nil {
			bridge = r.bridges.BridgeFor(p.UserID)
		}
		e = &registryEntry{wallet: New(bridge, r.balances, r.opts, r.logger.With().Str("user_id", p.UserID).Logger())}
		r.wallets[key] = e
	}
	e.lastUsed = r.now()
	w := e.wallet
	r.mu.Unlock()

	if !ok {
		w.Init(ctx)
	}
	return w
}

// Remove drops the wallet of a finished session.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.wallets, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wallets)
}

// Close stops the sweeper. Only the first call has effect.
func (r *Registry) Close() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if n := r.cleanup(); n > 0 {
				r.logger.Debug().Int("wallets", n).Msg("swept idle wallets")
			}
		}
	}
}

// cleanup drops wallets idle for longer than Options.IdleTimeout.
func (r *Registry) cleanup() int {
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, e := range r.wallets {
		if e.lastUsed.Before(cutoff) {
			delete(r.wallets, key)
			n++
		}
	}
	return n
}
