package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// Audio backends.
const (
	AudioSpeaker = "speaker"
	AudioBell    = "bell"
	AudioNone    = "none"
)

// Settings are the tunables of a run. Zero-config runs use Default().
type Settings struct {
	// Assets is a directory or an http(s) base URL holding config.json,
	// icons/ and sounds/.
	Assets string `yaml:"assets"`
	// Prefix is prepended to every asset reference.
	Prefix string `yaml:"prefix"`

	Jitter  JitterSettings  `yaml:"jitter"`
	Speed   SpeedSettings   `yaml:"speed"`
	Audio   string          `yaml:"audio"`
	Desktop DesktopSettings `yaml:"desktop"`
	Log     LogSettings     `yaml:"log"`
}

type JitterSettings struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// SpeedSettings bound the per-app slider. Higher values mean longer delays.
type SpeedSettings struct {
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
	Default int `yaml:"default"`
	Step    int `yaml:"step"`
}

type DesktopSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type LogSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the settings of the public deployment.
func Default() Settings {
	return Settings{
		Assets: "public",
		Jitter: JitterSettings{Low: 100, High: 800},
		Speed:  SpeedSettings{Min: 10, Max: 100, Default: 50, Step: 5},
		Audio:  AudioSpeaker,
		Desktop: DesktopSettings{
			Interval: 2 * time.Second,
		},
		Log: LogSettings{Level: "info"},
	}
}

// DefaultPath is the settings file under XDG_CONFIG_HOME (~/.config).
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "busysim", "config.yaml"), nil
}

// Load overlays the YAML file at path onto the defaults. A missing file is
// only an error when the caller asked for it explicitly.
func Load(fs afero.Fs, path string, required bool) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate rejects settings the scheduler or UI cannot work with.
func (s Settings) Validate() error {
	if s.Jitter.Low < 0 || s.Jitter.High <= 0 || s.Jitter.High < s.Jitter.Low {
		return fmt.Errorf("invalid jitter window [%g, %g]", s.Jitter.Low, s.Jitter.High)
	}
	if s.Speed.Min >= s.Speed.Max {
		return fmt.Errorf("invalid speed range [%d, %d]", s.Speed.Min, s.Speed.Max)
	}
	if s.Speed.Default < s.Speed.Min || s.Speed.Default > s.Speed.Max {
		return fmt.Errorf("default speed %d outside [%d, %d]", s.Speed.Default, s.Speed.Min, s.Speed.Max)
	}
	if s.Speed.Step <= 0 {
		return fmt.Errorf("speed step must be positive, got %d", s.Speed.Step)
	}
	switch s.Audio {
	case AudioSpeaker, AudioBell, AudioNone:
	default:
		return fmt.Errorf("unknown audio backend %q", s.Audio)
	}
	return nil
}

// ClampSpeed keeps v on the slider.
func (s SpeedSettings) ClampSpeed(v int) int {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}
