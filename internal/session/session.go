// Package session implements the timed click-test state machine.
package session

import (
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/multiclick"
	"github.com/verte-zerg/cpstest/internal/stats"
	"github.com/verte-zerg/cpstest/internal/ticker"
	"github.com/verte-zerg/cpstest/internal/variant"
)

// liveWarmup is the elapsed time below which live CPS reads zero.
const liveWarmup = 0.1

// Recorder receives the result of each finished test.
type Recorder interface {
	Record(res model.Result) model.HistoryRecord
}

// Snapshot is the renderable state of a session.
type Snapshot struct {
	Variant   model.Variant
	State     model.State
	Duration  int
	StartedAt time.Time
	Clicks    int
	Elapsed   float64
	LiveCPS   float64
	FinalCPS  float64
	Multi     int
	BestMulti time.Duration
	Button    model.Button
}

// Remaining returns the seconds left in the test.
func (s Snapshot) Remaining() float64 {
	return max(0, float64(s.Duration)-s.Elapsed)
}

// Engine drives one test variant through Idle, Active and Finished.
// It is not safe for concurrent use; all calls are expected on the
// Bubble Tea update loop.
type Engine struct {
	cfg      variant.Config
	recorder Recorder
	ticker   *ticker.Ticker
	now      func() time.Time
	log      *slog.Logger
	interval time.Duration

	state     model.State
	startedAt time.Time
	clicks    int
	elapsed   float64
	finalCPS  float64
	result    *model.Result
	multi     *multiclick.Detector
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRecorder sets where finished results are appended.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithInterval sets the sampling cadence.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.interval = d
	}
}

// New builds an idle engine for cfg.
func New(cfg variant.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval: ticker.DefaultInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ticker = ticker.New(e.interval)
	if cfg.MultiTarget > 0 {
		e.multi = multiclick.New(cfg.MultiTarget, cfg.MultiWindow)
	}
	return e
}

// Config returns the variant configuration.
func (e *Engine) Config() variant.Config {
	return e.cfg
}

// State returns the lifecycle state.
func (e *Engine) State() model.State {
	return e.state
}

// Ticker exposes the sampler, mainly for hosts that drive ticks themselves.
func (e *Engine) Ticker() *ticker.Ticker {
	return e.ticker
}

// Press registers an input event and reports whether it counted as a click.
// The event time is used for start and deadline checks; a zero time means now.
// The returned command starts sampling on the first accepted click.
func (e *Engine) Press(ev model.InputEvent) (bool, tea.Cmd) {
	if !e.cfg.Policy.Accept(ev) {
		return false, nil
	}
	now := ev.At
	if now.IsZero() {
		now = e.now()
	}
	switch e.state {
	case model.StateFinished:
		return false, nil
	case model.StateIdle:
		if e.clicks > 0 {
			return false, nil
		}
		cmd := e.begin(now)
		e.click(now)
		return true, cmd
	case model.StateActive:
		if e.secondsSince(now) >= e.cfg.Seconds() {
			return false, nil
		}
		e.click(now)
		return true, nil
	}
	return false, nil
}

// Start moves an idle engine to Active without registering a click.
func (e *Engine) Start() tea.Cmd {
	if e.state != model.StateIdle || e.clicks > 0 {
		return nil
	}
	return e.begin(e.now())
}

func (e *Engine) begin(now time.Time) tea.Cmd {
	e.state = model.StateActive
	e.startedAt = now
	e.clicks = 0
	e.elapsed = 0
	e.log.Debug("Test started", "variant", e.cfg.Variant, "duration", e.cfg.Duration)
	return e.ticker.Start()
}

func (e *Engine) click(now time.Time) {
	e.clicks++
	if e.multi != nil {
		e.multi.Feed(now)
	}
}

// Update handles tick messages and returns the next tick command.
func (e *Engine) Update(msg tea.Msg) tea.Cmd {
	if tick, ok := msg.(ticker.Msg); ok {
		return e.Tick(tick)
	}
	return nil
}

// Tick samples elapsed time. Ticks from a stopped or restarted run are ignored.
func (e *Engine) Tick(msg ticker.Msg) tea.Cmd {
	if !e.ticker.Valid(msg) || e.state != model.StateActive {
		return nil
	}
	elapsed := e.secondsSince(e.now())
	e.elapsed = min(elapsed, e.cfg.Seconds())
	if elapsed >= e.cfg.Seconds() {
		e.finish()
		return nil
	}
	return e.ticker.Next()
}

func (e *Engine) finish() {
	e.ticker.Stop()
	e.state = model.StateFinished
	e.elapsed = e.cfg.Seconds()
	e.finalCPS = stats.CPS(e.clicks, e.cfg.Seconds())

	res := model.Result{
		Variant:  e.cfg.Variant,
		Duration: e.cfg.Duration,
		Clicks:   e.clicks,
		FinalCPS: e.finalCPS,
	}
	if e.multi != nil {
		res.Multi = e.multi.Hits()
		res.BestMs = e.multi.Best().Milliseconds()
	}
	if e.recorder != nil {
		res.Record = e.recorder.Record(res)
	}
	e.result = &res
	e.log.Debug("Test finished", "variant", e.cfg.Variant, "clicks", e.clicks, "cps", e.finalCPS)
}

// Reset stops sampling and returns to Idle with zeroed counters.
func (e *Engine) Reset() {
	e.ticker.Stop()
	if e.state != model.StateIdle {
		e.log.Debug("Test reset", "variant", e.cfg.Variant, "from", e.state)
	}
	e.state = model.StateIdle
	e.startedAt = time.Time{}
	e.clicks = 0
	e.elapsed = 0
	e.finalCPS = 0
	e.result = nil
	if e.multi != nil {
		e.multi.Reset()
	}
}

// SelectButton changes the accepted mouse button and resets the session.
func (e *Engine) SelectButton(b model.Button) {
	e.cfg.Policy = e.cfg.Policy.WithButton(b)
	e.Reset()
}

// LiveCPS is the running score shown while a test is in progress.
func (e *Engine) LiveCPS() float64 {
	switch e.state {
	case model.StateFinished:
		return e.finalCPS
	case model.StateActive:
		if e.clicks == 0 || e.elapsed < liveWarmup {
			return 0
		}
		return stats.CPS(e.clicks, e.elapsed)
	default:
		return 0
	}
}

// Result returns the final result once the test has finished.
func (e *Engine) Result() (model.Result, bool) {
	if e.result == nil {
		return model.Result{}, false
	}
	return *e.result, true
}

// Snapshot returns the current renderable state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Variant:   e.cfg.Variant,
		State:     e.state,
		Duration:  e.cfg.Duration,
		StartedAt: e.startedAt,
		Clicks:    e.clicks,
		Elapsed:   e.elapsed,
		LiveCPS:   e.LiveCPS(),
		Button:    e.cfg.Policy.Button,
	}
	if e.state == model.StateFinished {
		s.FinalCPS = e.finalCPS
	}
	if e.multi != nil {
		s.Multi = e.multi.Hits()
		s.BestMulti = e.multi.Best()
	}
	return s
}

func (e *Engine) secondsSince(now time.Time) float64 {
	return now.Sub(e.startedAt).Seconds()
}
