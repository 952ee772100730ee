package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"

	"github.com/nateberkopec/busysim/internal/assets"
)

// SampleRate is the rate the speaker runs at; clips are resampled to it.
const SampleRate = beep.SampleRate(44100)

const resampleQuality = 4

// ErrUnsupportedFormat is returned for sound files beep cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported sound format")

// Sound is a playback handle for one app.
type Sound interface {
	Play()
	Stop()
}

type output interface {
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

// Engine decodes sound assets and plays them through the speaker.
type Engine struct {
	store assets.Store
	out   output
	log   zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	loading sync.WaitGroup
}

// NewEngine opens the audio device. It fails when no device is available.
func NewEngine(store assets.Store, log zerolog.Logger) (*Engine, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/20)); err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	return newEngine(store, speakerOutput{}, log), nil
}

func newEngine(store assets.Store, out output, log zerolog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{store: store, out: out, log: log, ctx: ctx, cancel: cancel}
}

// Load fetches and decodes ref into an in-memory clip.
func (e *Engine) Load(ctx context.Context, ref string) (*Clip, error) {
	rc, err := e.store.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(path.Ext(ref)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case ".flac":
		streamer, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ref, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, SampleRate, streamer)
	}
	format.SampleRate = SampleRate
	buf := beep.NewBuffer(format)
	buf.Append(src)

	return &Clip{out: e.out, buf: buf}, nil
}

// SoundFor returns at once and fetches ref in the background. The sound is
// silent until the clip is decoded, and stays silent if it never is.
// Playback problems are never fatal.
func (e *Engine) SoundFor(ref string) Sound {
	p := &pendingClip{ready: make(chan struct{})}
	e.loading.Add(1)
	go func() {
		defer e.loading.Done()
		defer close(p.ready)
		clip, err := e.Load(e.ctx, ref)
		if err != nil {
			if e.ctx.Err() == nil {
				e.log.Warn().Err(err).Str("sound", ref).Msg("sound unavailable, app will stay silent")
			}
			return
		}
		p.mu.Lock()
		p.clip = clip
		p.mu.Unlock()
	}()
	return p
}

// Close abandons loads still in flight and silences everything playing.
func (e *Engine) Close() {
	e.cancel()
	e.loading.Wait()
	if _, ok := e.out.(speakerOutput); ok {
		speaker.Clear()
	}
}

type pendingClip struct {
	ready chan struct{}

	mu   sync.Mutex
	clip *Clip
}

func (p *pendingClip) Play() {
	if c := p.loaded(); c != nil {
		c.Play()
	}
}

func (p *pendingClip) Stop() {
	if c := p.loaded(); c != nil {
		c.Stop()
	}
}

func (p *pendingClip) loaded() *Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip
}

// Clip is a decoded sound. Only one instance of a clip plays at a time.
type Clip struct {
	out output
	buf *beep.Buffer

	mu   sync.Mutex
	ctrl *beep.Ctrl
}

// Play cuts off the previous instance and starts from the beginning.
func (c *Clip) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silenceLocked()
	ctrl := &beep.Ctrl{Streamer: c.buf.Streamer(0, c.buf.Len())}
	c.ctrl = ctrl
	c.out.Play(ctrl)
}

// Stop silences the clip if it is playing.
func (c *Clip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silenceLocked()
}

// Len is the clip length in samples.
func (c *Clip) Len() int { return c.buf.Len() }

func (c *Clip) silenceLocked() {
	if c.ctrl == nil {
		return
	}
	c.out.Lock()
	// A Ctrl without a streamer reports itself drained and the mixer drops it.
	c.ctrl.Streamer = nil
	c.out.Unlock()
	c.ctrl = nil
}
