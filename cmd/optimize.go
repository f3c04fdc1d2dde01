package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/folia-dh/folia/pkg/index"
	"github.com/folia-dh/folia/pkg/storage"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Optimize the index database and truncate its WAL",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			store, err := storage.NewDocumentStorage(index.DatabasePath(cfg.IndexDir))
			if err != nil {
				return fmt.Errorf("opening index: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					fmt.Printf("Warning: failed to close index: %v\n", err)
				}
			}()

			if err := store.Optimize(); err != nil {
				return fmt.Errorf("optimizing index: %w", err)
			}
			if err := store.WALCheckpoint(); err != nil {
				return fmt.Errorf("checkpointing WAL: %w", err)
			}
			fmt.Println("Index optimized")
			return nil
		},
	}
}
