package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/nateberkopec/busysim/internal/app"
	"github.com/nateberkopec/busysim/internal/assets"
	"github.com/nateberkopec/busysim/internal/audio"
	"github.com/nateberkopec/busysim/internal/catalog"
	"github.com/nateberkopec/busysim/internal/config"
	"github.com/nateberkopec/busysim/internal/logging"
	"github.com/nateberkopec/busysim/internal/notify"
	"github.com/nateberkopec/busysim/internal/registry"
	"github.com/nateberkopec/busysim/internal/scheduler"
)

func run(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(s.Log.Level, s.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	store := assets.NewStore(s.Assets)
	resolver := assets.NewResolver(s.Prefix)
	reg := registry.NewWithDefaultSpeed(s.Speed.Default)

	sounds, release := newSoundFactory(s, store, resolver, log)
	defer release()

	mgr := scheduler.NewManager(reg, sounds, scheduler.Options{
		Jitter: scheduler.Jitter{Low: s.Jitter.Low, High: s.Jitter.High},
		Logger: log,
	})
	defer mgr.Close()

	model := app.New(app.Config{
		Registry:   reg,
		Controller: mgr,
		Load: func(c context.Context) ([]catalog.App, error) {
			return catalog.Load(c, store, resolver)
		},
		Speed:  s.Speed,
		Logger: log,
	})

	log.Info().
		Str("assets", s.Assets).
		Str("prefix", resolver.Prefix).
		Str("audio", s.Audio).
		Bool("desktop", s.Desktop.Enabled).
		Msg("starting")

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = program.Run()
	return err
}

// newSoundFactory picks the playback backend. The returned func releases the
// audio device and must run after the manager is closed.
func newSoundFactory(s config.Settings, store assets.Store, resolver assets.Resolver, log zerolog.Logger) (scheduler.SoundFactory, func()) {
	release := func() {}

	var base scheduler.SoundFactory
	switch s.Audio {
	case config.AudioNone:
		base = func(registry.Entry) scheduler.Sound { return audio.Silent{} }
	case config.AudioBell:
		base = bellFactory()
	default:
		engine, err := audio.NewEngine(store, log)
		if err != nil {
			log.Warn().Err(err).Msg("no audio device, falling back to the terminal bell")
			base = bellFactory()
			break
		}
		release = engine.Close
		base = func(e registry.Entry) scheduler.Sound {
			return engine.SoundFor(resolver.Sound(e.Sound))
		}
	}

	if !s.Desktop.Enabled {
		return base, release
	}

	n := notify.New(s.Desktop.Interval)
	local, _ := store.(assets.Localizer)
	return func(e registry.Entry) scheduler.Sound {
		icon := ""
		if local != nil {
			if p, ok := local.LocalPath(resolver.Icon(e.Icon)); ok {
				icon = p
			}
		}
		return n.Wrap(base(e), e.Name, icon)
	}, release
}

func bellFactory() scheduler.SoundFactory {
	bell := audio.NewBell()
	return func(registry.Entry) scheduler.Sound { return bell }
}
