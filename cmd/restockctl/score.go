package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/inference"
	"github.com/andresuchdata/restock-advisor/internal/scoring"
	"github.com/urfave/cli/v2"
)

func scoreCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score every catalog record and write the results as CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file, stdout when empty",
			},
			&cli.StringFlag{
				Name:  "min-tier",
				Usage: "Only keep rows at or above this risk tier (Low, Medium, High)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent predictions",
				Value: scoring.DefaultWorkers,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context

			var minTier domain.RiskTier
			if label := c.String("min-tier"); label != "" {
				tier, ok := domain.ParseRiskTier(label)
				if !ok {
					return fmt.Errorf("unknown risk tier %q", label)
				}
				minTier = tier
			}

			source, closeSource, err := app.CatalogSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			records, err := source.LoadInventory(ctx)
			if err != nil {
				return err
			}

			// Every record shares one artifact load.
			modelCfg := cfg.Model
			modelCfg.CacheMode = config.CacheModeCached
			provider, err := app.ArtifactProvider(modelCfg, source)
			if err != nil {
				return err
			}
			if _, err := provider.Artifacts(ctx); err != nil {
				return fmt.Errorf("failed to load model artifacts: %w", err)
			}

			rows, err := scoring.NewScorer(inference.NewPredictor(provider), c.Int("workers")).ScoreCatalog(ctx, records)
			if err != nil {
				return err
			}
			if minTier != "" {
				rows = scoring.Filter(rows, minTier)
			}

			var out io.Writer = c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			return scoring.WriteCSV(out, rows)
		},
	}
}
