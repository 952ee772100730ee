package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "dev"

const description = `
Busy Simulator plays the notification sounds of messaging apps on a
randomized loop so it sounds like everyone needs you right now.
Toggle apps on, then use their sliders to speed up the chaos.
`

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "busysim"
	app.HelpName = "busysim"
	app.Usage = "feign importance with repeating app notification sounds"
	app.Description = description
	app.Version = version
	app.Flags = globalFlags
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:   "apps",
			Usage:  "list the configured apps and their resolved assets",
			Action: listApps,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
