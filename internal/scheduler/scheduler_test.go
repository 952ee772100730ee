package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/nateberkopec/busysim/internal/catalog"
	"github.com/nateberkopec/busysim/internal/registry"
)

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// fakeClock collects timers and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the callback even if the timer was stopped, simulating a timer
// that expired just before Stop.
func (c *fakeClock) fire(t *fakeTimer) {
	c.mu.Lock()
	t.fired = true
	c.mu.Unlock()
	t.f()
}

type fakeSound struct {
	mu    sync.Mutex
	plays int
	stops int
}

func (s *fakeSound) Play() {
	s.mu.Lock()
	s.plays++
	s.mu.Unlock()
}

func (s *fakeSound) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}

func (s *fakeSound) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

type harness struct {
	reg    *registry.Registry
	clock  *fakeClock
	sounds map[string]*fakeSound
	mgr    *Manager
}

func newHarness(t *testing.T, apps ...catalog.App) *harness {
	t.Helper()
	h := &harness{
		reg:    registry.New(),
		clock:  &fakeClock{},
		sounds: make(map[string]*fakeSound),
	}
	h.reg.Load(apps)
	h.mgr = NewManager(h.reg, func(e registry.Entry) Sound {
		s := &fakeSound{}
		h.sounds[e.ID] = s
		return s
	}, Options{
		Clock: h.clock,
		Rand:  func() float64 { return 0.5 },
	})
	t.Cleanup(h.mgr.Close)
	return h
}

func (h *harness) entry(t *testing.T, id string) registry.Entry {
	t.Helper()
	e, ok := h.reg.Get(id)
	if !ok {
		t.Fatalf("missing entry %s", id)
	}
	return e
}

var chat = catalog.App{ID: "a1", Name: "Chat", Icon: "a.png", Sound: "a.mp3"}
var mail = catalog.App{ID: "b2", Name: "Mail", Icon: "b.png", Sound: "b.mp3"}

func TestJitterBoundsAtDefaultSpeed(t *testing.T) {
	lo, hi := DefaultJitter.Bounds(50)
	// (50+15)^1.2/10 ≈ 14.979
	if lo < 1497*time.Millisecond || lo > 1499*time.Millisecond {
		t.Fatalf("unexpected low bound %v", lo)
	}
	if hi < 11982*time.Millisecond || hi > 11986*time.Millisecond {
		t.Fatalf("unexpected high bound %v", hi)
	}
	if d := DefaultJitter.Delay(50, 0); d != lo {
		t.Fatalf("expected zero draw to hit low bound, got %v", d)
	}
}

func TestJitterIsDeterministicAndMonotonic(t *testing.T) {
	j := Jitter{Low: 200, High: 500}
	if j.Delay(30, 0.25) != j.Delay(30, 0.25) {
		t.Fatal("expected same draw to give same delay")
	}
	if d := j.Delay(30, 0.25); d%time.Millisecond != 0 {
		t.Fatalf("expected whole milliseconds, got %v", d)
	}
	prev := time.Duration(0)
	for speed := 10; speed <= 100; speed += 10 {
		d := j.Delay(speed, 0.5)
		if d <= prev {
			t.Fatalf("expected higher speed to give longer delay: speed=%d %v <= %v", speed, d, prev)
		}
		prev = d
	}
}

func TestToggleOnSchedulesOneTimer(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Sync()

	active, ok := h.mgr.Toggle("a1")
	if !ok || !active {
		t.Fatalf("expected toggle on, got active=%v ok=%v", active, ok)
	}
	e := h.entry(t, "a1")
	if !e.Active || e.Count != 1 {
		t.Fatalf("unexpected entry after toggle on: %#v", e)
	}
	if h.sounds["a1"].Plays() != 1 {
		t.Fatalf("expected immediate play, got %d", h.sounds["a1"].Plays())
	}
	pending := h.clock.pending()
	if len(pending) != 1 {
		t.Fatalf("expected exactly one pending timer, got %d", len(pending))
	}
	if want := DefaultJitter.Delay(50, 0.5); pending[0].delay != want {
		t.Fatalf("expected delay %v, got %v", want, pending[0].delay)
	}
}

func TestToggleOffBeforeFireCancels(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")
	timer := h.clock.pending()[0]

	active, _ := h.mgr.Toggle("a1")
	if active {
		t.Fatal("expected toggle off")
	}
	if !timer.stopped {
		t.Fatal("expected pending timer to be cancelled")
	}
	e := h.entry(t, "a1")
	if e.Active || e.Count != 0 {
		t.Fatalf("unexpected entry after toggle off: %#v", e)
	}

	// The timer may already have expired when Stop ran.
	h.clock.fire(timer)
	if e := h.entry(t, "a1"); e.Count != 0 {
		t.Fatalf("stale timer incremented count to %d", e.Count)
	}
	if h.sounds["a1"].Plays() != 1 {
		t.Fatalf("stale timer played sound, plays=%d", h.sounds["a1"].Plays())
	}
	if len(h.clock.pending()) != 0 {
		t.Fatal("stale timer scheduled another iteration")
	}
}

func TestFireIncrementsAndReschedules(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")

	for i := 0; i < 3; i++ {
		pending := h.clock.pending()
		if len(pending) != 1 {
			t.Fatalf("iteration %d: expected one pending timer, got %d", i, len(pending))
		}
		h.clock.fire(pending[0])
	}

	e := h.entry(t, "a1")
	if e.Count != 4 {
		t.Fatalf("expected count 4 after three pings, got %d", e.Count)
	}
	if h.sounds["a1"].Plays() != 4 {
		t.Fatalf("expected 4 plays, got %d", h.sounds["a1"].Plays())
	}

	var got []Event
	for len(got) < 3 {
		select {
		case ev := <-h.mgr.Events():
			got = append(got, ev)
		default:
			t.Fatalf("expected 3 events, got %d", len(got))
		}
	}
	if got[2].ID != "a1" || got[2].Count != 4 {
		t.Fatalf("unexpected last event: %#v", got[2])
	}
}

func TestSpeedChangeAppliesToNextIteration(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")

	h.mgr.SetSpeed("a1", 10)
	h.clock.fire(h.clock.pending()[0])

	next := h.clock.pending()[0]
	if want := DefaultJitter.Delay(10, 0.5); next.delay != want {
		t.Fatalf("expected live speed to drive delay %v, got %v", want, next.delay)
	}
}

func TestLoopStopsWhenEntryGoesIdle(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")
	timer := h.clock.pending()[0]

	// State flips without going through the manager.
	h.reg.Update("a1", registry.Patch{Active: registry.Bool(false), Count: registry.Int(0)})
	h.clock.fire(timer)

	s, _ := h.mgr.Scheduler("a1")
	if s.Running() {
		t.Fatal("expected scheduler to stop itself")
	}
	if e := h.entry(t, "a1"); e.Count != 0 {
		t.Fatalf("expected no increment, got %d", e.Count)
	}
	if len(h.clock.pending()) != 0 {
		t.Fatal("expected no further timers")
	}
}

func TestIndependentApps(t *testing.T) {
	h := newHarness(t, chat, mail)
	h.mgr.Toggle("a1")
	h.mgr.Toggle("b2")
	if len(h.clock.pending()) != 2 {
		t.Fatalf("expected two pending timers, got %d", len(h.clock.pending()))
	}

	// Timers are kept in scheduling order, so mail's is second.
	h.clock.fire(h.clock.pending()[1])

	if e := h.entry(t, "a1"); e.Count != 1 {
		t.Fatalf("chat count changed by mail ping: %d", e.Count)
	}
	if e := h.entry(t, "b2"); e.Count != 2 {
		t.Fatalf("expected mail count 2, got %d", e.Count)
	}

	h.mgr.Toggle("a1")
	pending := h.clock.pending()
	if len(pending) != 1 {
		t.Fatalf("expected mail timer to survive, got %d pending", len(pending))
	}
	h.clock.fire(pending[0])
	if e := h.entry(t, "b2"); e.Count != 3 || !e.Active {
		t.Fatalf("unexpected mail entry: %#v", e)
	}
}

func TestStopAllResetsEverything(t *testing.T) {
	h := newHarness(t, chat, mail)
	h.mgr.Toggle("a1")
	h.mgr.Toggle("b2")
	h.clock.fire(h.clock.pending()[0])

	h.mgr.StopAll()
	for _, e := range h.reg.Entries() {
		if e.Active || e.Count != 0 {
			t.Fatalf("expected %s reset, got %#v", e.ID, e)
		}
	}
	if len(h.clock.pending()) != 0 {
		t.Fatal("expected no pending timers after stop all")
	}

	// Idempotent on an idle set.
	h.mgr.StopAll()
}

func TestToggleUnknownIsNoop(t *testing.T) {
	h := newHarness(t, chat)
	if _, ok := h.mgr.Toggle("ghost"); ok {
		t.Fatal("expected toggle of unknown id to report false")
	}
	if len(h.clock.pending()) != 0 {
		t.Fatal("expected no timers")
	}
}

func TestSyncCreatesOncePerID(t *testing.T) {
	h := newHarness(t, chat, mail)
	if n := h.mgr.Sync(); n != 2 {
		t.Fatalf("expected 2 schedulers created, got %d", n)
	}
	if n := h.mgr.Sync(); n != 0 {
		t.Fatalf("expected no new schedulers, got %d", n)
	}
	first, _ := h.mgr.Scheduler("a1")
	h.mgr.Toggle("a1")
	second, _ := h.mgr.Scheduler("a1")
	if first != second {
		t.Fatal("expected toggle to reuse the existing scheduler")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Sync()
	s, _ := h.mgr.Scheduler("a1")
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("expected idle scheduler")
	}
}

func TestStartRequiresActiveEntry(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Sync()
	s, _ := h.mgr.Scheduler("a1")
	s.Start()
	if s.Running() || h.sounds["a1"].Plays() != 0 {
		t.Fatal("expected start of an idle app to do nothing")
	}
	if e := h.entry(t, "a1"); e.Count != 0 {
		t.Fatalf("expected idle count, got %d", e.Count)
	}
}

func TestCloseClosesEvents(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")
	timer := h.clock.pending()[0]
	h.mgr.Close()

	h.clock.fire(timer)
	if _, open := <-h.mgr.Events(); open {
		t.Fatal("expected events channel to be closed and drained")
	}
	if _, ok := h.mgr.Toggle("a1"); ok {
		t.Fatal("expected toggle after close to be ignored")
	}
}

// gatedRegistry parks the first fire inside IncrementActive so another
// goroutine can act while the scheduler is mid-fire.
type gatedRegistry struct {
	*registry.Registry
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRegistry) IncrementActive(id string) (int, bool) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Registry.IncrementActive(id)
}

func newGatedManager(t *testing.T, apps ...catalog.App) (*gatedRegistry, *fakeClock, *Manager) {
	t.Helper()
	reg := &gatedRegistry{
		Registry: registry.New(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	reg.Load(apps)
	clock := &fakeClock{}
	mgr := NewManager(reg, func(registry.Entry) Sound { return &fakeSound{} }, Options{
		Clock: clock,
		Rand:  func() float64 { return 0.5 },
	})
	t.Cleanup(mgr.Close)
	return reg, clock, mgr
}

func TestToggleOffDuringFireLeavesIdleCount(t *testing.T) {
	reg, clock, mgr := newGatedManager(t, chat)
	mgr.Toggle("a1")
	timer := clock.pending()[0]

	fired := make(chan struct{})
	go func() {
		clock.fire(timer)
		close(fired)
	}()
	<-reg.entered

	toggled := make(chan struct{})
	go func() {
		mgr.Toggle("a1")
		close(toggled)
	}()
	// Give the toggle a chance to run ahead of the parked fire.
	time.Sleep(20 * time.Millisecond)
	close(reg.release)
	<-fired
	<-toggled

	e, _ := reg.Get("a1")
	if e.Active || e.Count != 0 {
		t.Fatalf("expected idle app with no badge, got active=%v count=%d", e.Active, e.Count)
	}
	if len(clock.pending()) != 0 {
		t.Fatal("expected no timers after toggle off")
	}
}

func TestStopAllDuringFireLeavesIdleCount(t *testing.T) {
	reg, clock, mgr := newGatedManager(t, chat, mail)
	mgr.Toggle("a1")
	mgr.Toggle("b2")
	timer := clock.pending()[0]

	fired := make(chan struct{})
	go func() {
		clock.fire(timer)
		close(fired)
	}()
	<-reg.entered

	stopped := make(chan struct{})
	go func() {
		mgr.StopAll()
		close(stopped)
	}()
	time.Sleep(20 * time.Millisecond)
	close(reg.release)
	<-fired
	<-stopped

	for _, e := range reg.Entries() {
		if e.Active || e.Count != 0 {
			t.Fatalf("expected %s reset, got %#v", e.ID, e)
		}
	}
	if len(clock.pending()) != 0 {
		t.Fatal("expected no timers after stop all")
	}
}

func TestFireSkipsAppSwitchedOffBehindItsBack(t *testing.T) {
	h := newHarness(t, chat)
	h.mgr.Toggle("a1")
	timer := h.clock.pending()[0]

	h.reg.Update("a1", registry.Patch{Active: registry.Bool(false), Count: registry.Int(0)})
	h.clock.fire(timer)

	if h.sounds["a1"].Plays() != 1 {
		t.Fatalf("expected no playback for an idle app, plays=%d", h.sounds["a1"].Plays())
	}
	select {
	case ev := <-h.mgr.Events():
		t.Fatalf("unexpected ping event %#v", ev)
	default:
	}
}
