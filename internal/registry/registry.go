package registry

import (
	"sync"

	"github.com/nateberkopec/busysim/internal/catalog"
)

const (
	// DefaultSpeed is the slider position every app starts at.
	DefaultSpeed = 50
	// ActiveCount is the badge value right after an app is switched on.
	ActiveCount = 1
	// IdleCount is the badge value of an app that is switched off.
	IdleCount = 0
)

// Entry is the live state of one configured app.
type Entry struct {
	ID    string
	Name  string
	Icon  string
	Sound string

	Active bool
	Count  int
	Speed  int
}

// Patch carries the fields Update should overwrite. Nil fields are left alone.
type Patch struct {
	Active *bool
	Count  *int
	Speed  *int
}

// Registry keeps the ordered app entries that the UI renders and the
// schedulers read from.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
	loaded  bool

	defaultSpeed int
	changes      chan struct{}
}

// New creates a registry with no entries.
func New() *Registry {
	return NewWithDefaultSpeed(DefaultSpeed)
}

// NewWithDefaultSpeed creates a registry whose entries start at speed.
func NewWithDefaultSpeed(speed int) *Registry {
	return &Registry{
		entries:      make(map[string]*Entry),
		defaultSpeed: speed,
		changes:      make(chan struct{}, 1),
	}
}

// Load builds entries from the catalog with default state. The app set is
// fixed once loaded; later calls return false and change nothing.
func (r *Registry) Load(apps []catalog.App) bool {
	r.mu.Lock()
	if r.loaded {
		r.mu.Unlock()
		return false
	}
	r.loaded = true
	for _, app := range apps {
		if _, ok := r.entries[app.ID]; ok {
			continue
		}
		r.entries[app.ID] = &Entry{
			ID:     app.ID,
			Name:   app.Name,
			Icon:   app.Icon,
			Sound:  app.Sound,
			Active: false,
			Count:  IdleCount,
			Speed:  r.defaultSpeed,
		}
		r.order = append(r.order, app.ID)
	}
	r.mu.Unlock()
	r.notify()
	return true
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of every entry in catalog order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok {
			items = append(items, *e)
		}
	}
	return items
}

// Len exposes the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Update merges p into the entry for id. It reports false for unknown ids.
func (r *Registry) Update(id string, p Patch) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		if p.Active != nil {
			e.Active = *p.Active
		}
		if p.Count != nil {
			e.Count = *p.Count
		}
		if p.Speed != nil {
			e.Speed = *p.Speed
		}
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
	return ok
}

// SetSpeed stores the slider value for id as given.
func (r *Registry) SetSpeed(id string, speed int) bool {
	return r.Update(id, Patch{Speed: &speed})
}

// Increment bumps the notification count of id and returns the new value.
func (r *Registry) Increment(id string) (int, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	count := 0
	if ok {
		e.Count++
		count = e.Count
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
	return count, ok
}

// IncrementActive bumps the count of id only while it is active. It reports
// false for unknown or idle apps and leaves them untouched.
func (r *Registry) IncrementActive(id string) (int, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	ok = ok && e.Active
	count := 0
	if ok {
		e.Count++
		count = e.Count
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
	return count, ok
}

// ResetAll switches every app off and clears every badge.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	for _, e := range r.entries {
		e.Active = false
		e.Count = IdleCount
	}
	r.mu.Unlock()
	r.notify()
}

// Changes signals after any mutation. Signals coalesce, so receivers should
// re-read the whole state.
func (r *Registry) Changes() <-chan struct{} {
	return r.changes
}

func (r *Registry) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}

// Bool and Int build Patch fields.
func Bool(v bool) *bool { return &v }
func Int(v int) *int    { return &v }
