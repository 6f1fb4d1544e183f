package history

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/store"
)

// Registry owns one ledger per test type over a shared store.
type Registry struct {
	kv      store.KV
	log     *slog.Logger
	now     func() time.Time
	ledgers map[string]*Ledger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock overrides the clock used for record ids and dates.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry backed by kv.
func NewRegistry(kv store.KV, opts ...Option) *Registry {
	r := &Registry{
		kv:      kv,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		ledgers: map[string]*Ledger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ledger returns the ledger for testType, loading it on first use.
func (r *Registry) Ledger(testType string) *Ledger {
	if l, ok := r.ledgers[testType]; ok {
		return l
	}
	l := newLedger(testType, r.kv, r.log, r.now)
	l.Load()
	r.ledgers[testType] = l
	return l
}

// StoredTestTypes lists the test types that have a ledger in the store, in
// key order. Stores that cannot enumerate keys report none.
func (r *Registry) StoredTestTypes(ctx context.Context) ([]string, error) {
	lister, ok := r.kv.(store.Lister)
	if !ok {
		return nil, nil
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	types := []string{}
	for _, k := range keys {
		if t, found := strings.CutSuffix(k, keySuffix); found && t != "" {
			types = append(types, t)
		}
	}
	return types, nil
}

// Recorder adapts a ledger to the session engine.
type Recorder struct {
	Ledger *Ledger
}

// Record implements session.Recorder.
func (rc Recorder) Record(res model.Result) model.HistoryRecord {
	return rc.Ledger.AddResult(res)
}
