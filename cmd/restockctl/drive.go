package main

import (
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/drive"
	"github.com/urfave/cli/v2"
)

func driveSyncCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "drive-sync",
		Usage: "Download the catalog tables from a Google Drive folder",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "folder-id",
				Usage: "Drive folder id",
				Value: cfg.Drive.FolderID,
			},
			&cli.StringFlag{
				Name:  "folder-path",
				Usage: "Drive folder path, resolved when no id is given",
				Value: cfg.Drive.FolderPath,
			},
		}, catalogFileFlags(cfg)...),
		Action: func(c *cli.Context) error {
			if cfg.Drive.CredentialsJSON == "" {
				return fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_JSON is not set")
			}
			svc, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
			if err != nil {
				return err
			}

			folderID := c.String("folder-id")
			if folderID == "" {
				if c.String("folder-path") == "" {
					return fmt.Errorf("either --folder-id or --folder-path is required")
				}
				folderID, err = svc.FindFolderByPath(c.Context, c.String("folder-path"))
				if err != nil {
					return err
				}
			}

			result, err := drive.NewCatalogSync(svc).Sync(c.Context, drive.SyncOptions{
				FolderID:             folderID,
				InventoryPath:        c.String("inventory"),
				FacilityFeaturesPath: c.String("facility-features"),
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
