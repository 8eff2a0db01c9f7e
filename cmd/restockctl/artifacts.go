package main

import (
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/storage"
	"github.com/urfave/cli/v2"
)

func artifactFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Bucket prefix holding the artifact set",
			Value: cfg.Storage.Prefix,
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Local artifact directory",
			Value: cfg.Model.ArtifactDir,
		},
	}
}

func artifactSync(c *cli.Context, cfg *config.Config) (*storage.ArtifactSync, []string, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil, fmt.Errorf("STORAGE_BUCKET is not set")
	}
	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewArtifactSync(client, c.String("prefix")), app.ArtifactPaths(cfg.Model).Files(), nil
}

func fetchArtifactsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "fetch-artifacts",
		Usage: "Download the model artifacts from object storage",
		Flags: artifactFlags(cfg),
		Action: func(c *cli.Context) error {
			sync, files, err := artifactSync(c, cfg)
			if err != nil {
				return err
			}
			paths, err := sync.Fetch(c.Context, c.String("dir"), files)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(c.App.Writer, p)
			}
			return nil
		},
	}
}

func publishArtifactsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "publish-artifacts",
		Usage: "Upload the local model artifacts to object storage",
		Flags: artifactFlags(cfg),
		Action: func(c *cli.Context) error {
			sync, files, err := artifactSync(c, cfg)
			if err != nil {
				return err
			}
			keys, err := sync.Publish(c.Context, c.String("dir"), files)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(c.App.Writer, k)
			}
			return nil
		},
	}
}
