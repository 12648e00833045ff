package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/federated-rag/retrieval-gateway/internal/logging"
	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
	"github.com/federated-rag/retrieval-gateway/internal/server"
)

func newSearchCmd() *cobra.Command {
	var (
		site     string
		limit    int
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one federated search and print the merged results",
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
			client, err := server.BuildClient(cfg, endpoint, logger)
			if err != nil {
				return err
			}
			results, err := client.Search(cmd.Context(), args[0], site, cfg.ClampLimit(limit))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&site, "site", retrieval.AllSites, "site filter (single, comma-separated list, or 'all')")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results to return (0 uses the configured default)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "pin the search to one configured endpoint")
	return cmd
}
