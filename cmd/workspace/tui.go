package main

import (
	"path/filepath"

	"github.com/monocle-dev/workspace/internal/client"
	"github.com/monocle-dev/workspace/internal/config"
	"github.com/monocle-dev/workspace/internal/logger"
	"github.com/monocle-dev/workspace/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCmd() *cobra.Command {
	var (
		server  string
		logPath string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			if server == "" {
				server = cfg.Client.BaseURL
			}

			log, err := logger.NewFile(cfg.Logging.Level, logPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			c, err := client.New(server)
			if err != nil {
				return err
			}
			log.Infow("starting terminal client", "server", server)
			return tui.Run(c, log)
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "API base URL (overrides CLIENT_BASE_URL)")
	cmd.Flags().StringVar(&logPath, "log", filepath.Join(".", "workspace-tui.log"), "log file")
	return cmd
}
