package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nateberkopec/busysim/internal/registry"
)

// Sound is the playback handle a scheduler owns. Play restarts the sound
// from the beginning if it is still playing.
type Sound interface {
	Play()
	Stop()
}

// Store is the live app state a scheduler reads and writes through.
type Store interface {
	Get(id string) (registry.Entry, bool)
	Update(id string, p registry.Patch) bool
	IncrementActive(id string) (int, bool)
}

// Event reports a ping so the UI can animate the app.
type Event struct {
	ID    string
	Count int
	At    time.Time
}

// Scheduler drives the repeating ping loop of one app.
type Scheduler struct {
	id     string
	store  Store
	sound  Sound
	clock  Clock
	jitter Jitter
	rand   func() float64
	onPing func(Event)
	log    zerolog.Logger

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	running bool
}

func newScheduler(id string, store Store, sound Sound, opts Options, onPing func(Event)) *Scheduler {
	return &Scheduler{
		id:     id,
		store:  store,
		sound:  sound,
		clock:  opts.Clock,
		jitter: opts.Jitter,
		rand:   opts.Rand,
		onPing: onPing,
		log:    opts.Logger.With().Str("app", id).Logger(),
	}
}

// ID returns the app the scheduler belongs to.
func (s *Scheduler) ID() string { return s.id }

// Running reports whether the loop is live.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start plays the sound right away, sets the badge to ActiveCount and begins
// the loop. It does nothing unless the app is currently active.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.Get(s.id)
	if !ok || !e.Active {
		return
	}

	s.stopLocked()
	s.running = true
	s.sound.Play()
	s.store.Update(s.id, registry.Patch{Count: registry.Int(registry.ActiveCount)})
	s.log.Debug().Int("speed", e.Speed).Msg("loop started")
	s.loopLocked(s.gen)
}

// Stop cancels the pending ping and silences the sound. Safe to call when
// already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasRunning := s.running
	s.stopLocked()
	if wasRunning {
		s.log.Debug().Msg("loop stopped")
	}
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// A callback that already fired and is waiting on mu sees a stale gen.
	s.gen++
	s.running = false
	s.sound.Stop()
}

func (s *Scheduler) loopLocked(gen uint64) {
	e, ok := s.store.Get(s.id)
	if !ok || !e.Active {
		s.stopLocked()
		return
	}
	delay := s.jitter.Delay(e.Speed, s.rand())
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })
	s.log.Trace().Dur("delay", delay).Msg("next ping scheduled")
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || !s.running {
		return
	}
	s.timer = nil

	// The count and the active check change together, so an app switched
	// off mid-fire never ends up idle with a badge.
	count, ok := s.store.IncrementActive(s.id)
	if !ok {
		s.stopLocked()
		return
	}

	s.sound.Stop()
	s.sound.Play()
	if s.onPing != nil {
		s.onPing(Event{ID: s.id, Count: count, At: time.Now()})
	}
	s.loopLocked(gen)
}
