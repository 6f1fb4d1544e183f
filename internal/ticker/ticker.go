// Package ticker schedules periodic elapsed-time samples on the Bubble Tea loop.
package ticker

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is the sampling cadence while a test is running.
const DefaultInterval = 50 * time.Millisecond

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// Msg is delivered once per sample.
type Msg struct {
	ID    int
	Epoch uint64
	At    time.Time
}

// Ticker produces tick messages tagged with an epoch. Stop bumps the epoch so
// ticks that are already queued can no longer be mistaken for live ones.
type Ticker struct {
	id       int
	interval time.Duration
	epoch    uint64
	running  bool
}

// New returns a stopped ticker. A non-positive interval uses DefaultInterval.
func New(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{id: nextID(), interval: interval}
}

// ID identifies this ticker's messages.
func (t *Ticker) ID() int {
	return t.id
}

// Epoch returns the current cancellation token.
func (t *Ticker) Epoch() uint64 {
	return t.epoch
}

// Interval returns the sampling cadence.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Running reports whether sampling is active.
func (t *Ticker) Running() bool {
	return t.running
}

// Start begins sampling. It returns nil when already running.
func (t *Ticker) Start() tea.Cmd {
	if t.running {
		return nil
	}
	t.epoch++
	t.running = true
	return t.Next()
}

// Stop cancels sampling. Safe to call when not running.
func (t *Ticker) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.epoch++
}

// Valid reports whether msg belongs to the current run of this ticker.
func (t *Ticker) Valid(msg Msg) bool {
	return t.running && msg.ID == t.id && msg.Epoch == t.epoch
}

// Next schedules the following sample for the current run.
func (t *Ticker) Next() tea.Cmd {
	if !t.running {
		return nil
	}
	id, epoch := t.id, t.epoch
	return tea.Tick(t.interval, func(at time.Time) tea.Msg {
		return Msg{ID: id, Epoch: epoch, At: at}
	})
}

// Current returns a message valid for the current run, for callers that drive
// sampling themselves.
func (t *Ticker) Current(at time.Time) Msg {
	return Msg{ID: t.id, Epoch: t.epoch, At: at}
}
