// Package rag answers questions over an ingested repository.
//
// The answerer retrieves the most similar chunks from the vector store,
// folds them into a system prompt and asks the chat model for a single
// grounded completion.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
	"github.com/casablancahotelsoftware/tech-lab/internal/vectorstore"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 4

var (
	// ErrEmptyQuestion indicates an empty question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrNoAnswer indicates the model returned no choices.
	ErrNoAnswer = errors.New("model returned no answer")
)

// systemPromptTemplate instructs the model to answer only from the
// retrieved context.
const systemPromptTemplate = `You are an assistant for question-answering tasks.
Use the following pieces of retrieved context to answer the question.
If you don't know the answer, just say that you don't know.
Use three sentences maximum and keep the answer concise.
Context: %s:`

// Retriever returns scored chunks for a query. Satisfied by
// vectorstore.Store.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error)
}

// Answer is a model response plus the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []vectorstore.SearchResult
}

// Answerer wires retrieval and completion together.
type Answerer struct {
	retriever Retriever
	model     llms.Model
	topK      int
	logger    *logging.Logger
}

// Option customizes an Answerer.
type Option func(*Answerer)

// WithTopK overrides how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// NewAnswerer creates an Answerer over the given retriever and model.
func NewAnswerer(retriever Retriever, model llms.Model, logger *logging.Logger, opts ...Option) *Answerer {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Answerer{
		retriever: retriever,
		model:     model,
		topK:      DefaultTopK,
		logger:    logger.Named("rag"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAzureChatModel builds the chat model from the shared Azure
// credentials and the configured deployment name.
func NewAzureChatModel(creds config.EmbeddingsConfig, chat config.ChatConfig) (llms.Model, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("validating credentials: %w", err)
	}
	if chat.Model == "" {
		return nil, fmt.Errorf("chat model cannot be empty")
	}

	llm, err := openai.New(
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithAPIVersion(creds.APIVersion),
		openai.WithBaseURL(creds.BaseURL),
		openai.WithToken(creds.APIKey.Value()),
		openai.WithModel(chat.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Azure OpenAI chat client: %w", err)
	}
	return llm, nil
}

// Answer retrieves context for the question and generates one
// completion. Retrieval coming back empty is not an error; the model is
// asked with an empty context and will typically answer that it does
// not know.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	sources, err := a.retriever.Search(ctx, question, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	a.logger.Debug("retrieved context",
		zap.Int("chunks", len(sources)),
		zap.Int("top_k", a.topK),
	)

	var contextText strings.Builder
	for _, source := range sources {
		contextText.WriteString(source.Content)
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, fmt.Sprintf(systemPromptTemplate, contextText.String())),
		llms.TextParts(schema.ChatMessageTypeHuman, question),
	}

	resp, err := a.model.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoAnswer
	}

	return &Answer{
		Text:    resp.Choices[0].Content,
		Sources: sources,
	}, nil
}
