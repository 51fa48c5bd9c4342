package core

import "context"

// Embedder maps text to fixed-dimension vectors. Implementations must be
// deterministic for a fixed configuration and must embed the empty string
// without error.
type Embedder interface {
	// EmbedQuery generates an embedding for a single text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embeddings for a batch of texts, one vector per
	// input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dim returns the fixed dimensionality of produced vectors.
	Dim() int
}

// VectorIndex persists entries and answers nearest-neighbor queries.
//
// Lifecycle: EnsureSchema moves a fresh index to schema_ready, Insert may be
// called from multiple goroutines once the schema exists, BuildIndex and Load
// make the index searchable. Search is only guaranteed to succeed once loaded.
type VectorIndex interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, entries []Entry) error
	BuildIndex(ctx context.Context) error
	Load(ctx context.Context) error
	// Search returns up to topK entries ordered by descending similarity,
	// ties broken by insertion order.
	Search(ctx context.Context, vector []float32, topK int) ([]Passage, error)
	State() IndexState
	Count() int
	Close() error
}

// Retriever is the capability agents depend on: embed a query, search the
// index, return ranked passages. An empty result is a legitimate outcome,
// distinct from an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}
