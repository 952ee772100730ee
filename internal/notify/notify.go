package notify

import (
	"fmt"
	"io"
	"time"

	"github.com/gen2brain/beeep"
	"golang.org/x/time/rate"
)

// Sound mirrors the playback handle it decorates.
type Sound interface {
	Play()
	Stop()
}

// Notifier raises desktop notifications, at most one per interval across
// every app.
type Notifier struct {
	limiter *rate.Limiter
	send    func(title, message, icon string) error
}

// New creates a notifier allowing one notification per interval with a small
// burst.
func New(interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = time.Second
	}
	return &Notifier{
		limiter: rate.NewLimiter(rate.Every(interval), 3),
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

// Notify sends one notification unless the limiter says otherwise. Errors are
// ignored so a missing notification daemon never breaks playback.
func (n *Notifier) Notify(title, message, icon string) bool {
	if !n.limiter.Allow() {
		return false
	}
	_ = n.send(title, message, icon)
	return true
}

// Wrap returns a sound that also notifies each time it plays.
func (n *Notifier) Wrap(s Sound, appName, icon string) Sound {
	return &notifyingSound{Sound: s, n: n, name: appName, icon: icon}
}

type notifyingSound struct {
	Sound
	n    *Notifier
	name string
	icon string
}

// Play only leaves a goroutine behind when the limiter lets the
// notification through.
func (s *notifyingSound) Play() {
	s.Sound.Play()
	if !s.n.limiter.Allow() {
		return
	}
	go func() {
		_ = s.n.send(s.name, fmt.Sprintf("%s: new message", s.name), s.icon)
	}()
}

// Close releases the wrapped sound when it holds resources.
func (s *notifyingSound) Close() error {
	if c, ok := s.Sound.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
