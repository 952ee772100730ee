package scheduler

import (
	"io"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nateberkopec/busysim/internal/registry"
)

// Registry is the app state the manager coordinates with.
type Registry interface {
	Store
	Entries() []registry.Entry
	ResetAll()
}

// SoundFactory builds the playback handle for an app. It must not fail;
// backends hand out a silent sound when the asset cannot be played.
type SoundFactory func(e registry.Entry) Sound

// Options tunes scheduler timing. Zero values fall back to the defaults.
type Options struct {
	Jitter Jitter
	Clock  Clock
	Rand   func() float64
	Logger zerolog.Logger
	// EventBuffer bounds undelivered ping events; extra events are dropped.
	EventBuffer int
}

func (o Options) withDefaults() Options {
	if o.Jitter == (Jitter{}) {
		o.Jitter = DefaultJitter
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	return o
}

// Manager owns one Scheduler per app id.
type Manager struct {
	reg      Registry
	newSound SoundFactory
	opts     Options
	log      zerolog.Logger

	mu         sync.Mutex
	schedulers map[string]*Scheduler
	sounds     map[string]Sound
	closed     bool

	evMu         sync.RWMutex
	events       chan Event
	eventsClosed bool
}

// NewManager creates a manager with no schedulers. Call Sync once the
// registry is loaded.
func NewManager(reg Registry, newSound SoundFactory, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		reg:        reg,
		newSound:   newSound,
		opts:       opts,
		log:        opts.Logger,
		schedulers: make(map[string]*Scheduler),
		sounds:     make(map[string]Sound),
		events:     make(chan Event, opts.EventBuffer),
	}
}

// Sync creates schedulers for entries seen for the first time and returns
// how many were created.
func (m *Manager) Sync() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	created := 0
	for _, e := range m.reg.Entries() {
		if _, ok := m.schedulers[e.ID]; ok {
			continue
		}
		m.ensureLocked(e)
		created++
	}
	return created
}

// Scheduler returns the scheduler for id, if one has been created.
func (m *Manager) Scheduler(id string) (*Scheduler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedulers[id]
	return s, ok
}

// Toggle flips the app between idle and active and starts or stops its
// loop. It reports the new state, and false for unknown ids.
func (m *Manager) Toggle(id string) (active bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, false
	}

	e, ok := m.reg.Get(id)
	if !ok {
		return false, false
	}
	s := m.ensureLocked(e)

	active = !e.Active
	if active {
		m.reg.Update(id, registry.Patch{Active: registry.Bool(true), Count: registry.Int(registry.ActiveCount)})
		s.Start()
	} else {
		// Stop waits out a fire in progress before the badge is cleared.
		s.Stop()
		m.reg.Update(id, registry.Patch{Active: registry.Bool(false), Count: registry.Int(registry.IdleCount)})
	}
	m.log.Info().Str("app", id).Bool("active", active).Msg("toggled")
	return active, true
}

// SetSpeed stores a new slider value. A running loop uses it from its next
// iteration on.
func (m *Manager) SetSpeed(id string, speed int) bool {
	ok := m.reg.Update(id, registry.Patch{Speed: registry.Int(speed)})
	if ok {
		m.log.Debug().Str("app", id).Int("speed", speed).Msg("speed changed")
	}
	return ok
}

// StopAll switches every app off, clears every badge and stops every loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedulers {
		s.Stop()
	}
	m.reg.ResetAll()
	m.log.Info().Msg("stopped all apps")
}

// Events delivers pings. The channel is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Close stops every loop and releases the sounds. The manager is unusable
// afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, s := range m.schedulers {
		s.Stop()
		if c, ok := m.sounds[id].(io.Closer); ok {
			if err := c.Close(); err != nil {
				m.log.Warn().Err(err).Str("app", id).Msg("failed to release sound")
			}
		}
	}

	m.evMu.Lock()
	m.eventsClosed = true
	close(m.events)
	m.evMu.Unlock()
}

func (m *Manager) ensureLocked(e registry.Entry) *Scheduler {
	if s, ok := m.schedulers[e.ID]; ok {
		return s
	}
	sound := m.newSound(e)
	s := newScheduler(e.ID, m.reg, sound, m.opts, m.publish)
	m.schedulers[e.ID] = s
	m.sounds[e.ID] = sound
	return s
}

func (m *Manager) publish(ev Event) {
	m.evMu.RLock()
	defer m.evMu.RUnlock()
	if m.eventsClosed {
		return
	}
	select {
	case m.events <- ev:
	default:
	}
}
