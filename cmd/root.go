// Package cmd defines and implements the CLI commands for the
// retrieval-gateway executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/federated-rag/retrieval-gateway/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieval-gateway",
		Short: "Federated search gateway for retrieval-augmented generation.",
		Long: `retrieval-gateway presents one logical search operation over a
heterogeneous set of backend search and vector stores. It fans queries out
across every eligible endpoint concurrently, tolerates individual backend
failures, and merges the results into a single relevance-ordered,
URL-deduplicated answer.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gateway.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSitesCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("gateway.yaml"); err == nil {
			path = "gateway.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
