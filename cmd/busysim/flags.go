package main

import (
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/nateberkopec/busysim/internal/config"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "settings file (default: $XDG_CONFIG_HOME/busysim/config.yaml)",
	},
	cli.StringFlag{
		Name:   "assets, a",
		Usage:  "directory or http(s) URL holding config.json, icons/ and sounds/",
		EnvVar: "BUSYSIM_ASSETS",
	},
	cli.StringFlag{
		Name:   "prefix, p",
		Usage:  "asset prefix prepended to every asset reference",
		EnvVar: "BUSYSIM_ASSET_PREFIX",
	},
	cli.Float64Flag{
		Name:  "low",
		Usage: "lower jitter constant in milliseconds",
	},
	cli.Float64Flag{
		Name:  "high",
		Usage: "upper jitter constant in milliseconds",
	},
	cli.StringFlag{
		Name:   "audio",
		Usage:  "audio backend: speaker, bell or none",
		EnvVar: "BUSYSIM_AUDIO",
	},
	cli.BoolFlag{
		Name:   "desktop, d",
		Usage:  "also raise a desktop notification on every ping",
		EnvVar: "BUSYSIM_DESKTOP",
	},
	cli.StringFlag{
		Name:   "log-level",
		Usage:  "debug, info, warn, error or disabled",
		EnvVar: "BUSYSIM_LOG_LEVEL",
	},
	cli.StringFlag{
		Name:   "log-file",
		Usage:  "log file (default: $XDG_STATE_HOME/busysim/busysim.log)",
		EnvVar: "BUSYSIM_LOG_FILE",
	},
}

// loadSettings layers defaults, the settings file, env vars and flags.
func loadSettings(ctx *cli.Context) (config.Settings, error) {
	path := ctx.GlobalString("config")
	required := path != ""
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	s, err := config.Load(afero.NewOsFs(), path, required)
	if err != nil {
		return s, err
	}

	if ctx.GlobalIsSet("assets") {
		s.Assets = ctx.GlobalString("assets")
	}
	if ctx.GlobalIsSet("prefix") {
		s.Prefix = ctx.GlobalString("prefix")
	}
	if ctx.GlobalIsSet("low") {
		s.Jitter.Low = ctx.GlobalFloat64("low")
	}
	if ctx.GlobalIsSet("high") {
		s.Jitter.High = ctx.GlobalFloat64("high")
	}
	if ctx.GlobalIsSet("audio") {
		s.Audio = ctx.GlobalString("audio")
	}
	if ctx.GlobalIsSet("desktop") {
		s.Desktop.Enabled = ctx.GlobalBool("desktop")
	}
	if ctx.GlobalIsSet("log-level") {
		s.Log.Level = ctx.GlobalString("log-level")
	}
	if ctx.GlobalIsSet("log-file") {
		s.Log.File = ctx.GlobalString("log-file")
	}
	return s, s.Validate()
}
