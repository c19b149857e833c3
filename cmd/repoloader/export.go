package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/document"
	"github.com/casablancahotelsoftware/tech-lab/internal/loader"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
	"github.com/casablancahotelsoftware/tech-lab/internal/tokenizer"
)

var (
	exportInputPath  string
	exportOutputPath string
	exportFormat     string
	exportUseIgnore  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Chunk a repository and write the documents to a file",
	Long: `Export walks a source repository, splits every matching file into
overlapping chunks with contextual metadata, and writes the result as a
JSON array or JSON Lines.

Examples:
  # Export a repository to a JSON array
  repoloader export -i ./CleanArchitecture -o chunks.json

  # Export as JSON Lines
  repoloader export -i ./CleanArchitecture -o chunks.jsonl -f jsonl`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportInputPath, "input-path", "i", "", "repository root to process (required)")
	exportCmd.Flags().StringVarP(&exportOutputPath, "output-path", "o", "", "output file path (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", document.FormatJSON, "output format: json or jsonl")
	exportCmd.Flags().BoolVar(&exportUseIgnore, "use-ignore-files", false, "honor .gitignore/.ignore files in the repository")
	_ = exportCmd.MarkFlagRequired("input-path")
	_ = exportCmd.MarkFlagRequired("output-path")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docs, err := loadRepository(cmd, cfg, logger, exportInputPath, exportUseIgnore)
	if err != nil {
		return err
	}

	if err := document.Export(docs, exportOutputPath, exportFormat); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutputPath, err)
	}

	logger.Info("export complete",
		zap.Int("documents", len(docs)),
		zap.String("output", exportOutputPath),
		zap.String("format", exportFormat),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d documents to %s\n", len(docs), exportOutputPath)
	return nil
}

// loadRepository chunks a repository with a terminal progress bar.
// Shared by the export and ingest commands.
func loadRepository(cmd *cobra.Command, cfg *config.Config, logger *logging.Logger, root string, useIgnore bool) ([]document.ChunkDocument, error) {
	counter, err := tokenizer.NewTiktokenCounter(tokenizer.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("initializing tokenizer: %w", err)
	}

	repoLoader, err := loader.New(loader.Config{
		ChunkSize:    cfg.Loader.ChunkSize,
		ChunkOverlap: cfg.Loader.ChunkOverlap,
		RootMarker:   cfg.Loader.RootMarker,
		Workers:      cfg.Loader.Workers,
	}, counter, logger)
	if err != nil {
		return nil, fmt.Errorf("building loader: %w", err)
	}

	var (
		bar     *progressbar.ProgressBar
		barOnce sync.Once
	)
	docs, err := repoLoader.Load(cmd.Context(), root, loader.Options{
		IncludePatterns: cfg.Loader.IncludePatterns,
		ExcludePatterns: cfg.Loader.ExcludePatterns,
		UseIgnoreFiles:  useIgnore || cfg.Loader.UseIgnoreFiles,
		Progress: func(processed, total int, file string) {
			barOnce.Do(func() {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Processing files"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			})
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", root, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Info("repository processed",
		zap.String("root", root),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}
