package session

import (
	"testing"
	"time"

	"github.com/verte-zerg/cpstest/internal/history"
	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/store"
	"github.com/verte-zerg/cpstest/internal/variant"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type captureRecorder struct {
	results []model.Result
}

func (r *captureRecorder) Record(res model.Result) model.HistoryRecord {
	r.results = append(r.results, res)
	return model.HistoryRecord{ID: int64(len(r.results)), TestTime: res.Duration, Clicks: res.Clicks, CPS: res.FinalCPS}
}

func newEngine(t *testing.T, v model.Variant, duration int) (*Engine, *fakeClock, *captureRecorder) {
	t.Helper()
	cfg, err := variant.Resolve(v, duration, variant.DefaultOptions())
	if err != nil {
		t.Fatalf("resolve variant: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	rec := &captureRecorder{}
	return New(cfg, WithClock(clock.Now), WithRecorder(rec)), clock, rec
}

func left(clock *fakeClock) model.InputEvent {
	return model.MouseEvent(model.ButtonLeft, clock.now)
}

func tick(e *Engine, clock *fakeClock) {
	e.Tick(e.Ticker().Current(clock.now))
}

func TestFirstClickStartsSession(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 5)
	if e.State() != model.StateIdle {
		t.Fatalf("expected idle engine")
	}
	ok, cmd := e.Press(left(clock))
	if !ok || cmd == nil {
		t.Fatalf("expected accepted first click with tick command")
	}
	snap := e.Snapshot()
	if snap.State != model.StateActive || snap.Clicks != 1 || !snap.StartedAt.Equal(clock.now) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !e.Ticker().Running() {
		t.Fatalf("expected ticker to run")
	}
	clock.Advance(100 * time.Millisecond)
	ok, cmd = e.Press(left(clock))
	if !ok || cmd != nil {
		t.Fatalf("expected accepted click without a second tick command")
	}
	if e.Snapshot().Clicks != 2 {
		t.Fatalf("expected 2 clicks")
	}
}

func TestScenarioThirtySevenClicksInFiveSeconds(t *testing.T) {
	e, clock, rec := newEngine(t, model.VariantClick, 5)
	for i := 0; i < 37; i++ {
		if ok, _ := e.Press(left(clock)); !ok {
			t.Fatalf("click %d rejected", i)
		}
		clock.Advance(130 * time.Millisecond)
		tick(e, clock)
	}
	if e.State() != model.StateActive {
		t.Fatalf("expected session to still be active at %.2fs", e.Snapshot().Elapsed)
	}
	clock.Advance(5 * time.Second)
	tick(e, clock)

	res, ok := e.Result()
	if !ok {
		t.Fatalf("expected a result")
	}
	if res.FinalCPS != 7.4 || res.Clicks != 37 || res.Duration != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	snap := e.Snapshot()
	if snap.State != model.StateFinished || snap.Elapsed != 5 || snap.FinalCPS != 7.4 || snap.LiveCPS != 7.4 {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
	if len(rec.results) != 1 {
		t.Fatalf("expected exactly one recorded result, got %d", len(rec.results))
	}
	if e.Ticker().Running() {
		t.Fatalf("expected ticker to stop at finish")
	}
}

func TestScenarioZeroClicksStillRecorded(t *testing.T) {
	cfg, err := variant.Resolve(model.VariantClick, 1, variant.DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	reg := history.NewRegistry(store.NewMemory(), history.WithClock(clock.Now))
	ledger := reg.Ledger(cfg.TestType)
	e := New(cfg, WithClock(clock.Now), WithRecorder(history.Recorder{Ledger: ledger}))

	if cmd := e.Start(); cmd == nil {
		t.Fatalf("expected tick command from explicit start")
	}
	clock.Advance(1100 * time.Millisecond)
	tick(e, clock)

	res, ok := e.Result()
	if !ok || res.FinalCPS != 0 || res.Clicks != 0 {
		t.Fatalf("unexpected result %+v (ok=%v)", res, ok)
	}
	records := ledger.Records()
	if len(records) != 1 || records[0].Clicks != 0 || records[0].CPS != 0 || records[0].TestTime != 1 {
		t.Fatalf("expected one zero-click record, got %+v", records)
	}
}

func TestScenarioWrongButtonWhileIdle(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 5)
	ok, cmd := e.Press(model.MouseEvent(model.ButtonRight, clock.now))
	if ok || cmd != nil {
		t.Fatalf("expected right click to be rejected")
	}
	if e.State() != model.StateIdle || e.Snapshot().Clicks != 0 {
		t.Fatalf("expected untouched idle session")
	}
	if e.Ticker().Running() {
		t.Fatalf("ticker must not start on rejected input")
	}
}

func TestScenarioResetMidTestIgnoresLateTick(t *testing.T) {
	e, clock, rec := newEngine(t, model.VariantKohi, 0)
	for i := 0; i < 10; i++ {
		e.Press(left(clock))
		clock.Advance(230 * time.Millisecond)
	}
	tick(e, clock)
	if got := e.Snapshot().Elapsed; got < 2.29 || got > 2.31 {
		t.Fatalf("expected elapsed 2.3s, got %v", got)
	}
	late := e.Ticker().Current(clock.now.Add(50 * time.Millisecond))

	e.Reset()
	if e.Ticker().Running() {
		t.Fatalf("expected ticker stopped after reset")
	}
	clock.Advance(20 * time.Second)
	if cmd := e.Tick(late); cmd != nil {
		t.Fatalf("late tick must not schedule further ticks")
	}
	if cmd := e.Update(late); cmd != nil {
		t.Fatalf("late tick via Update must be ignored")
	}
	snap := e.Snapshot()
	if snap.State != model.StateIdle || snap.Clicks != 0 || snap.Elapsed != 0 {
		t.Fatalf("late tick revived the session: %+v", snap)
	}
	if len(rec.results) != 0 {
		t.Fatalf("reset session must not be recorded")
	}
	if _, ok := e.Result(); ok {
		t.Fatalf("reset session must have no result")
	}
}

func TestClicksFrozenAfterFinish(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 1)
	e.Press(left(clock))
	clock.Advance(time.Second)
	tick(e, clock)
	if e.State() != model.StateFinished {
		t.Fatalf("expected finished state")
	}
	if ok, _ := e.Press(left(clock)); ok {
		t.Fatalf("expected click after finish to be rejected")
	}
	if e.Snapshot().Clicks != 1 {
		t.Fatalf("clicks changed after finish")
	}
	// Further ticks are ignored once finished.
	tick(e, clock)
	if e.Snapshot().Clicks != 1 {
		t.Fatalf("clicks changed after finish")
	}
}

func TestClickAfterTimeUpBeforeTickRejected(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 2)
	e.Press(left(clock))
	clock.Advance(2*time.Second + time.Millisecond)
	if ok, _ := e.Press(left(clock)); ok {
		t.Fatalf("expected click after the deadline to be rejected")
	}
	tick(e, clock)
	res, ok := e.Result()
	if !ok || res.Clicks != 1 || res.FinalCPS != 0.5 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestElapsedNeverExceedsDuration(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 1)
	e.Press(left(clock))
	for i := 0; i < 30; i++ {
		clock.Advance(70 * time.Millisecond)
		tick(e, clock)
		if el := e.Snapshot().Elapsed; el > 1 {
			t.Fatalf("elapsed %v exceeds duration", el)
		}
	}
}

func TestResetIsIdempotent(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 5)
	e.Press(left(clock))
	e.Reset()
	first := e.Snapshot()
	e.Reset()
	second := e.Snapshot()
	if first != second {
		t.Fatalf("expected identical snapshots, got %+v and %+v", first, second)
	}
	if second.State != model.StateIdle || second.Clicks != 0 {
		t.Fatalf("unexpected reset snapshot %+v", second)
	}
	if ok, cmd := e.Press(left(clock)); !ok || cmd == nil {
		t.Fatalf("expected a fresh session to start after reset")
	}
}

func TestSelectButtonResets(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 5)
	e.Press(left(clock))
	e.SelectButton(model.ButtonRight)
	if e.State() != model.StateIdle || e.Snapshot().Clicks != 0 {
		t.Fatalf("expected reset after selecting a new button")
	}
	if ok, _ := e.Press(left(clock)); ok {
		t.Fatalf("expected left click to be rejected after selecting right")
	}
	if ok, _ := e.Press(model.MouseEvent(model.ButtonRight, clock.now)); !ok {
		t.Fatalf("expected right click to be accepted")
	}
	if e.Snapshot().Button != model.ButtonRight {
		t.Fatalf("snapshot should report the selected button")
	}
}

func TestLiveCPS(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 10)
	if e.LiveCPS() != 0 {
		t.Fatalf("expected zero live cps while idle")
	}
	e.Press(left(clock))
	clock.Advance(50 * time.Millisecond)
	tick(e, clock)
	if e.LiveCPS() != 0 {
		t.Fatalf("expected zero live cps during warmup")
	}
	for i := 0; i < 9; i++ {
		clock.Advance(200 * time.Millisecond)
		e.Press(left(clock))
	}
	clock.Advance(150 * time.Millisecond)
	tick(e, clock)
	// 10 clicks over 2.0 seconds.
	if got := e.LiveCPS(); got != 5 {
		t.Fatalf("expected live cps 5, got %v", got)
	}
}

func TestSpaceVariantDropsRepeats(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantSpace, 5)
	if ok, _ := e.Press(left(clock)); ok {
		t.Fatalf("mouse must not count in the space test")
	}
	if ok, _ := e.Press(model.KeyEvent(model.KeySpace, clock.now)); !ok {
		t.Fatalf("expected space to start the test")
	}
	repeat := model.KeyEvent(model.KeySpace, clock.now)
	repeat.Repeat = true
	if ok, _ := e.Press(repeat); ok {
		t.Fatalf("expected auto-repeat to be dropped")
	}
	if e.Snapshot().Clicks != 1 {
		t.Fatalf("expected 1 click")
	}
}

func TestDoubleClickVariantCountsClusters(t *testing.T) {
	e, clock, rec := newEngine(t, model.VariantDouble, 1)
	gaps := []time.Duration{0, 100 * time.Millisecond, 600 * time.Millisecond, 90 * time.Millisecond}
	for _, gap := range gaps {
		clock.Advance(gap)
		e.Press(left(clock))
	}
	if snap := e.Snapshot(); snap.Multi != 2 || snap.BestMulti != 90*time.Millisecond {
		t.Fatalf("unexpected multi stats %+v", snap)
	}
	clock.Advance(time.Second)
	tick(e, clock)
	res, ok := e.Result()
	if !ok || res.Multi != 2 || res.BestMs != 90 || res.Clicks != 4 || res.FinalCPS != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(rec.results) != 1 || rec.results[0].Multi != 2 {
		t.Fatalf("expected recorder to receive multi count")
	}
}

func TestPressUsesEventTime(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantDouble, 5)
	start := clock.now
	// Events are processed late; clustering and timing follow their own stamps.
	clock.Advance(2 * time.Second)
	e.Press(model.MouseEvent(model.ButtonLeft, start))
	e.Press(model.MouseEvent(model.ButtonLeft, start.Add(120*time.Millisecond)))

	snap := e.Snapshot()
	if !snap.StartedAt.Equal(start) {
		t.Fatalf("expected start at event time, got %v", snap.StartedAt)
	}
	if snap.Multi != 1 || snap.BestMulti != 120*time.Millisecond {
		t.Fatalf("expected one 120ms double click, got %+v", snap)
	}
}

func TestPressAfterDeadlineByEventTime(t *testing.T) {
	e, clock, _ := newEngine(t, model.VariantClick, 1)
	start := clock.now
	e.Press(model.MouseEvent(model.ButtonLeft, start))
	if ok, _ := e.Press(model.MouseEvent(model.ButtonLeft, start.Add(1500*time.Millisecond))); ok {
		t.Fatalf("event stamped after the deadline must be rejected")
	}
	if ok, _ := e.Press(model.InputEvent{Source: model.SourceMouse, Button: model.ButtonLeft}); !ok {
		t.Fatalf("zero event time must fall back to the engine clock")
	}
	if got := e.Snapshot().Clicks; got != 2 {
		t.Fatalf("expected 2 clicks, got %d", got)
	}
}
