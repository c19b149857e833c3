// Package main implements the repoloader CLI for chunking source
// repositories, ingesting them into qdrant and asking questions over
// the ingested content.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
)

var (
	configPath string
	verbose    bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repoloader",
	Short: "Chunk source repositories for retrieval-augmented generation",
	Long: `repoloader walks a source repository, splits its files into
overlapping chunks with contextual metadata, and either exports them to
JSON/JSONL or ingests them into a qdrant collection. Ingested
repositories can then be queried with the ask command.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
}

// loadConfig loads configuration and builds the logger shared by all
// commands.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = zapcore.DebugLevel
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, nil
}
