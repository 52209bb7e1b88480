package main

import (
	"context"
	"fmt"

	"github.com/monocle-dev/workspace/internal/config"
	"github.com/monocle-dev/workspace/internal/logger"
	"github.com/monocle-dev/workspace/internal/store"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the project dataset into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if dir == "" {
				dir = cfg.Storage.SeedDir
			}
			if dir == "" {
				return fmt.Errorf("no seed directory: pass --dir or set STORAGE_SEED_DIR")
			}

			st, err := store.Open(store.Options{
				Driver:  cfg.Storage.Driver,
				DataDir: cfg.Storage.DataDir,
				DSN:     cfg.Storage.DSN,
			}, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			ctx := context.Background()
			if !force {
				seeded, err := store.SeedIfEmpty(ctx, st, dir, log)
				if err != nil {
					return err
				}
				if !seeded {
					fmt.Println("store already has projects; use --force to overwrite")
				}
				return nil
			}

			data, err := store.LoadDataset(dir)
			if err != nil {
				return err
			}
			if err := st.Seed(ctx, data); err != nil {
				return fmt.Errorf("seed store: %w", err)
			}
			fmt.Printf("seeded %d projects from %s\n", len(data.Projects), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory holding projects.json, members.json and activities.json")
	cmd.Flags().BoolVar(&force, "force", false, "replace existing projects")
	return cmd
}
