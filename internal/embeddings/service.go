// Package embeddings generates vector embeddings via langchaingo.
//
// The service wraps langchaingo's OpenAI client configured for Azure
// OpenAI deployments. Requests are throttled with a client-side rate
// limiter so large ingestion runs stay under the deployment's quota.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")
)

const (
	// DefaultBatchSize bounds how many texts go into a single embedding
	// request.
	DefaultBatchSize = 64

	// defaultRequestsPerSecond throttles embedding API calls.
	defaultRequestsPerSecond = 4
)

// Service generates embeddings against an Azure OpenAI deployment.
type Service struct {
	embedder  lcembeddings.Embedder
	limiter   *rate.Limiter
	batchSize int
	logger    *logging.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithBatchSize overrides the per-request text batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRateLimit overrides the request throttle, in requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *Service) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewService creates an embedding service from Azure OpenAI settings.
// Missing credentials are a construction error so misconfiguration
// surfaces before any documents are processed.
func NewService(cfg config.EmbeddingsConfig, logger *logging.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	llm, err := openai.New(
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithAPIVersion(cfg.APIVersion),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Azure OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	s := &Service{
		embedder:  embedder,
		limiter:   rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		batchSize: DefaultBatchSize,
		logger:    logger.Named("embeddings"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Embedder returns the underlying langchaingo Embedder for components
// that consume the langchaingo interface directly.
func (s *Service) Embedder() lcembeddings.Embedder {
	return s.embedder
}

// EmbedDocuments generates one vector per input text, preserving input
// order. Texts are sent in batches and each request waits on the rate
// limiter first.
//
// Returns ErrEmptyInput if texts is empty or nil.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		batch, err := s.embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding documents %d..%d: %w", start, end-1, err)
		}
		s.logger.Debug("embedded batch",
			zap.Int("from", start),
			zap.Int("to", end-1),
		)
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery generates a single vector for a query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrEmptyInput)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}
