package retriever

import (
	"context"
	"errors"
	"time"

	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

// DefaultTopK is the number of passages returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// DefaultTimeout bounds one retrieval call (query embedding plus search).
const DefaultTimeout = 10 * time.Second

// Engine composes an embedder and a vector index into the retrieval
// capability agents depend on. Safe for concurrent use; repeated calls
// against a fixed index return identical results.
type Engine struct {
	embedder core.Embedder
	index    core.VectorIndex
	timeout  time.Duration
}

// New creates a retrieval engine. A non-positive timeout falls back to
// DefaultTimeout.
func New(embedder core.Embedder, index core.VectorIndex, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		embedder: embedder,
		index:    index,
		timeout:  timeout,
	}
}

// Retrieve embeds the query and searches the index, returning ranked
// passages. An empty or not-yet-loaded index yields an empty slice, not an
// error, and a timed-out or failed call degrades to the same empty outcome so
// callers can treat "no relevant document" as a legitimate result.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]core.Passage, error) {
	if topK < 1 {
		topK = DefaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn("Query embedding timed out, returning no passages: %v", err)
			return []core.Passage{}, nil
		}
		logger.Error("Query embedding failed, returning no passages: %v", err)
		return []core.Passage{}, nil
	}

	passages, err := e.index.Search(ctx, vector, topK)
	if err != nil {
		if errors.Is(err, core.ErrIndexNotReady) {
			logger.Debug("Index not loaded, returning no passages")
			return []core.Passage{}, nil
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn("Search timed out, returning no passages: %v", err)
			return []core.Passage{}, nil
		}
		logger.Error("Search failed, returning no passages: %v", err)
		return []core.Passage{}, nil
	}
	if passages == nil {
		passages = []core.Passage{}
	}
	return passages, nil
}
