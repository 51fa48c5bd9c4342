package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

// MemoryIndex is an in-process vector index with exact brute-force cosine
// search. It satisfies the same lifecycle contract as the Milvus-backed index
// and is used for tests and offline runs.
//
// Entries are append-only: re-ingesting a document creates new entries rather
// than replacing prior ones.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	state   core.IndexState
	entries []core.Entry
	norms   []float32
}

// NewMemoryIndex creates an uninitialized index for vectors of the given
// dimensionality.
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{
		dim:   dim,
		state: core.StateUninitialized,
	}
}

// EnsureSchema fixes the vector dimensionality and makes the index ready for
// inserts.
func (idx *MemoryIndex) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dim <= 0 {
		return fmt.Errorf("invalid vector dimensionality %d", idx.dim)
	}
	if idx.state == core.StateUninitialized {
		idx.state = core.StateSchemaReady
	}
	return nil
}

// Insert appends entries to the index. Safe for concurrent use by multiple
// ingestion workers. Inserting into a built index drops it back to
// schema_ready so the build step runs again over the full entry set.
func (idx *MemoryIndex) Insert(ctx context.Context, entries []core.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.state == core.StateUninitialized {
		return fmt.Errorf("insert before schema creation: %w", core.ErrIndexNotReady)
	}
	for _, e := range entries {
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
				core.ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dim)
		}
	}
	for _, e := range entries {
		idx.entries = append(idx.entries, e)
		idx.norms = append(idx.norms, norm(e.Vector))
	}
	idx.state = core.StateSchemaReady
	return nil
}

// BuildIndex finalizes inserted entries for search. The brute-force store has
// no structure to construct, so the build validates state and is a no-op
// otherwise. Building with nothing new inserted succeeds without changing a
// searchable index.
func (idx *MemoryIndex) BuildIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch idx.state {
	case core.StateSchemaReady:
		idx.state = core.StateIndexed
		return nil
	case core.StateIndexed, core.StateLoaded:
		// Nothing inserted since the last build.
		return nil
	default:
		return fmt.Errorf("cannot build index in state %s", idx.state)
	}
}

// Load makes the index queryable. Loading an already loaded index is a no-op.
func (idx *MemoryIndex) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch idx.state {
	case core.StateIndexed:
		idx.state = core.StateLoaded
		logger.Debug("Memory index loaded with %d entries", len(idx.entries))
		return nil
	case core.StateLoaded:
		return nil
	default:
		return fmt.Errorf("cannot load index in state %s", idx.state)
	}
}

// Search returns up to topK entries ordered by descending cosine similarity,
// ties broken by insertion order. Searching before the index is loaded fails
// closed with ErrIndexNotReady.
func (idx *MemoryIndex) Search(ctx context.Context, vector []float32, topK int) ([]core.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.state != core.StateLoaded {
		return nil, core.ErrIndexNotReady
	}
	if len(vector) != idx.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index expects %d",
			core.ErrDimensionMismatch, len(vector), idx.dim)
	}

	qnorm := norm(vector)
	scored := make([]core.Passage, 0, len(idx.entries))
	for i, e := range idx.entries {
		scored = append(scored, core.Passage{
			ChunkID: e.ChunkID,
			Text:    e.Text,
			Section: e.Section,
			Score:   cosine(vector, qnorm, e.Vector, idx.norms[i]),
		})
	}

	// Stable sort keeps insertion order on equal scores.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// State returns the current lifecycle state.
func (idx *MemoryIndex) State() core.IndexState {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Count returns the number of stored entries.
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close releases the index.
func (idx *MemoryIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = nil
	idx.norms = nil
	idx.state = core.StateUninitialized
	return nil
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(a []float32, anorm float32, b []float32, bnorm float32) float32 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot) / (anorm * bnorm)
}
