package audio

import (
	"sync"

	"github.com/gen2brain/beeep"
)

// Silent is a sound that never makes noise.
type Silent struct{}

func (Silent) Play() {}
func (Silent) Stop() {}

// Bell beeps through the system speaker when no audio device is usable. One
// worker plays the beeps; a ping arriving while another is queued is dropped.
type Bell struct {
	Freq     float64
	Duration int

	beep func(freq float64, duration int) error

	mu     sync.Mutex
	queue  chan struct{}
	closed bool
}

// NewBell returns a bell with beeep's default tone.
func NewBell() *Bell {
	return &Bell{Freq: beeep.DefaultFreq, Duration: beeep.DefaultDuration, beep: beeep.Beep}
}

// Play queues a beep; errors are ignored.
func (b *Bell) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.queue == nil {
		b.queue = make(chan struct{}, 1)
		go b.run(b.queue)
	}
	select {
	case b.queue <- struct{}{}:
	default:
	}
}

// Stop is a no-op: beeps are too short to cut off.
func (b *Bell) Stop() {}

// Close stops the worker. Later plays are ignored.
func (b *Bell) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.queue != nil {
		close(b.queue)
	}
	return nil
}

func (b *Bell) run(queue <-chan struct{}) {
	for range queue {
		_ = b.beep(b.Freq, b.Duration)
	}
}
