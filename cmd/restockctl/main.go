package main

import (
	"os"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:  "restockctl",
		Usage: "Operate the restock advisor catalog and model artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			seedCommand(cfg),
			fetchArtifactsCommand(cfg),
			publishArtifactsCommand(cfg),
			driveSyncCommand(cfg),
			scoreCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("restockctl failed")
	}
}
