package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/federated-rag/retrieval-gateway/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the retrieval gateway HTTP service",
		Long: `Starts the HTTP service exposing the federated search, document
upload and site management endpoints over every configured backend.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := server.Build(cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}
