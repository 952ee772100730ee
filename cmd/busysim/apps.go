package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli"

	"github.com/nateberkopec/busysim/internal/assets"
	"github.com/nateberkopec/busysim/internal/catalog"
)

func listApps(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}

	store := assets.NewStore(s.Assets)
	resolver := assets.NewResolver(s.Prefix)

	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	apps, err := catalog.Load(c, store, resolver)
	if err != nil {
		return fmt.Errorf("failed to load apps from %s: %w", s.Assets, err)
	}

	fmt.Fprintln(ctx.App.Writer, renderApps(apps, resolver))
	return nil
}

func renderApps(apps []catalog.App, resolver assets.Resolver) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "ICON", "SOUND")
	for _, a := range apps {
		t.Row(a.ID, a.Name, resolver.Icon(a.Icon), resolver.Sound(a.Sound))
	}
	return t.Render()
}
