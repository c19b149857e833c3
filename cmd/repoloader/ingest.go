package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/document"
	"github.com/casablancahotelsoftware/tech-lab/internal/embeddings"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
	"github.com/casablancahotelsoftware/tech-lab/internal/vectorstore"
)

var (
	ingestInputPath  string
	ingestJSONPath   string
	ingestCollection string
	ingestRecreate   bool
	ingestUseIgnore  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed chunk documents and store them in qdrant",
	Long: `Ingest embeds chunk documents with Azure OpenAI and upserts them
into a qdrant collection. Documents come either from a repository walked
on the fly (--input-path) or from a previously exported file (--json).

Requires AZURE_EMBEDDINGS_BASE_URL and AZURE_EMBEDDINGS_API_KEY (or the
equivalent config file entries).

Examples:
  # Chunk and ingest a repository, rebuilding the collection
  repoloader ingest --input-path ./CleanArchitecture --recreate

  # Ingest a previous export into a named collection
  repoloader ingest --json chunks.json --collection cleanarchitecture`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInputPath, "input-path", "i", "", "repository root to chunk and ingest")
	ingestCmd.Flags().StringVar(&ingestJSONPath, "json", "", "previously exported JSON/JSONL file to ingest")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "qdrant collection name (default from config)")
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "drop and recreate the collection before ingesting")
	ingestCmd.Flags().BoolVar(&ingestUseIgnore, "use-ignore-files", false, "honor .gitignore/.ignore files in the repository")
	ingestCmd.MarkFlagsOneRequired("input-path", "json")
	ingestCmd.MarkFlagsMutuallyExclusive("input-path", "json")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var docs []document.ChunkDocument
	if ingestJSONPath != "" {
		docs, err = document.ReadExport(ingestJSONPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", ingestJSONPath, err)
		}
	} else {
		docs, err = loadRepository(cmd, cfg, logger, ingestInputPath, ingestUseIgnore)
		if err != nil {
			return err
		}
	}
	if len(docs) == 0 {
		return fmt.Errorf("nothing to ingest: no documents produced")
	}

	store, err := openStore(cfg, logger, ingestCollection)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if ingestRecreate {
		if err := store.InitializeCollection(ctx); err != nil {
			return fmt.Errorf("recreating collection: %w", err)
		}
	} else {
		if err := store.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("ensuring collection: %w", err)
		}
	}

	start := time.Now()
	ids, err := store.AddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingesting documents: %w", err)
	}

	logger.Info("ingest complete",
		zap.Int("documents", len(ids)),
		zap.String("collection", store.CollectionName()),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents into collection %q\n", len(ids), store.CollectionName())
	return nil
}

// openStore builds the embedding service and qdrant store from config,
// honoring a --collection override when given.
func openStore(cfg *config.Config, logger *logging.Logger, collectionOverride string) (*vectorstore.Store, error) {
	embedder, err := embeddings.NewService(cfg.Embeddings, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	collection := cfg.Qdrant.CollectionName
	if collectionOverride != "" {
		collection = collectionOverride
	}

	store, err := vectorstore.NewStore(vectorstore.Config{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		CollectionName: collection,
		VectorSize:     cfg.Qdrant.VectorSize,
		MaxRetries:     cfg.Qdrant.MaxRetries,
		RetryBackoff:   cfg.Qdrant.RetryBackoff.Duration(),
	}, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return store, nil
}
