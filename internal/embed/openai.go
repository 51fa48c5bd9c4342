package embed

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

const (
	// DefaultEmbeddingModel is the model used for embeddings.
	DefaultEmbeddingModel = openai.SmallEmbedding3

	defaultBatchSize  = 64
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	requestTimeout    = 30 * time.Second
)

// OpenAIConfig holds configuration for the OpenAI-backed embedder.
type OpenAIConfig struct {
	APIKey     string
	Model      openai.EmbeddingModel
	Dim        int
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIEmbedder generates embeddings through the OpenAI API with batching
// and retry logic. The dimensionality is pinned at construction; a response
// vector of any other length is treated as a dimension mismatch.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dim        int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIEmbedder creates a new OpenAI-backed embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Dim <= 0 {
		cfg.Dim = DefaultDim
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		dim:        cfg.Dim,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Dim returns the pinned dimensionality of produced vectors.
func (e *OpenAIEmbedder) Dim() int { return e.dim }

// EmbedQuery embeds a single text.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in batches, one vector per input in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying embedding request (attempt %d/%d)", attempt, e.maxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(e.retryDelay, attempt)):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      e.model,
			Dimensions: e.dim,
		})
		cancel()

		if err != nil {
			lastErr = err
			// The parent context being done is not retryable.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
		}

		vectors := make([][]float32, len(resp.Data))
		for i, item := range resp.Data {
			if len(item.Embedding) != e.dim {
				return nil, fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(item.Embedding), e.dim)
			}
			vectors[i] = item.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("failed to create embeddings after %d retries: %w", e.maxRetries, lastErr)
}

// backoff returns an exponentially growing delay for the given attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
