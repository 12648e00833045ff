package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/federated-rag/retrieval-gateway/internal/logging"
	"github.com/federated-rag/retrieval-gateway/internal/server"
)

func newSitesCmd() *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List the sites known across all configured endpoints",
		Long: `Aggregates site lists from every endpoint that supports
enumeration. An empty result means no endpoint reports its sites, not that
no sites exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			client, err := server.BuildClient(cfg, endpoint, logger)
			if err != nil {
				return err
			}
			sites, err := client.GetSites(cmd.Context())
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				fmt.Println("no endpoint reports its sites")
				return nil
			}
			for _, s := range sites {
				fmt.Println(s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "pin the listing to one configured endpoint")
	return cmd
}
