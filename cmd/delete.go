package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/federated-rag/retrieval-gateway/internal/logging"
	"github.com/federated-rag/retrieval-gateway/internal/server"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <site>",
		Short: "Delete every document for a site from the write endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			client, err := server.BuildClient(cfg, "", logger)
			if err != nil {
				return err
			}
			count, err := client.DeleteBySite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d documents for site %s\n", count, args[0])
			return nil
		},
	}
}
