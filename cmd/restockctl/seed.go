package main

import (
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func catalogFileFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "inventory",
			Usage: "Inventory CSV path",
			Value: cfg.Catalog.InventoryPath,
		},
		&cli.StringFlag{
			Name:  "facility-features",
			Usage: "Precomputed facility features CSV path",
			Value: cfg.Catalog.FacilityFeaturesPath,
		},
	}
}

func seedCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "seed",
		Usage:  "Load the catalog CSVs into postgres, replacing existing rows",
		Flags:  append([]cli.Flag{newDBURLFlag()}, catalogFileFlags(cfg)...),
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	ctx := c.Context
	source := repository.NewCSVSource(c.String("inventory"), c.String("facility-features"))

	records, err := source.LoadInventory(ctx)
	if err != nil {
		return err
	}
	features, err := source.LoadFacilityFeatures(ctx)
	if err != nil {
		return err
	}

	db, err := postgres.NewDBFromURL(ctx, c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewCatalogRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	if err := repo.ReplaceCatalog(ctx, records, features); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Info().
		Int("records", len(records)).
		Int("facilities", features.Len()).
		Msg("catalog seeded")
	return nil
}
