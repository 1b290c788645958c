package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	appLog "monthcal/internal/log"
)

const (
	appName    = "monthcal"
	appVersion = "0.1.0"
)

func main() {
	defer appLog.Sync()

	app := cli.App{
		Name:    appName,
		Usage:   "Month calendar with recurring events and conflict detection",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the YAML config file",
				Value: "./config.yaml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the log level from the config (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Output debug messages",
			},
		},
		Commands: []cli.Command{
			serveCmd,
			monthCmd,
			exportCmd,
			importCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
