package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casablancahotelsoftware/tech-lab/internal/rag"
)

var (
	askCollection string
	askTopK       int
	askShowSrc    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question over an ingested repository",
	Long: `Ask retrieves the chunks most similar to the question from qdrant,
feeds them to the chat model as context and prints the answer.

Examples:
  # Ask over the default collection
  repoloader ask "What is Clean Architecture?"

  # Ask over a named collection with more context
  repoloader ask --collection cleanarchitecture --top-k 8 "How are migrations applied?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askCollection, "collection", "", "qdrant collection name (default from config)")
	askCmd.Flags().IntVar(&askTopK, "top-k", rag.DefaultTopK, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askShowSrc, "sources", false, "print the retrieved source files after the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	question := strings.Join(args, " ")

	store, err := openStore(cfg, logger, askCollection)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	model, err := rag.NewAzureChatModel(cfg.Embeddings, cfg.Chat)
	if err != nil {
		return fmt.Errorf("initializing chat model: %w", err)
	}

	answerer := rag.NewAnswerer(store, model, logger, rag.WithTopK(askTopK))
	answer, err := answerer.Answer(cmd.Context(), question)
	if err != nil {
		return err
	}

	logger.Debug("answer generated",
		zap.Int("sources", len(answer.Sources)),
		zap.String("collection", store.CollectionName()),
	)

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
	if askShowSrc && len(answer.Sources) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nSources:")
		for _, source := range answer.Sources {
			name, _ := source.Metadata["source"].(string)
			if name == "" {
				name = source.ID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %.3f  %s\n", source.Score, name)
		}
	}
	return nil
}
