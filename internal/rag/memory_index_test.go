package rag

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiteboxhub/agentic-rag/internal/core"
)

func readyIndex(t *testing.T, dim int) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex(dim)
	require.NoError(t, idx.EnsureSchema(context.Background()))
	return idx
}

func buildAndLoad(t *testing.T, idx *MemoryIndex) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, idx.BuildIndex(ctx))
	require.NoError(t, idx.Load(ctx))
}

func TestMemoryIndexLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(3)
	assert.Equal(t, core.StateUninitialized, idx.State())

	require.NoError(t, idx.EnsureSchema(ctx))
	assert.Equal(t, core.StateSchemaReady, idx.State())

	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "a", Text: "alpha", Vector: []float32{1, 0, 0}},
	}))
	assert.Equal(t, core.StateSchemaReady, idx.State())

	require.NoError(t, idx.BuildIndex(ctx))
	assert.Equal(t, core.StateIndexed, idx.State())

	require.NoError(t, idx.Load(ctx))
	assert.Equal(t, core.StateLoaded, idx.State())
}

func TestMemoryIndexSearchBeforeLoadFailsClosed(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 3)
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "a", Text: "alpha", Vector: []float32{1, 0, 0}},
	}))

	_, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, core.ErrIndexNotReady)
}

func TestMemoryIndexInsertBeforeSchemaFails(t *testing.T) {
	idx := NewMemoryIndex(3)
	err := idx.Insert(context.Background(), []core.Entry{
		{ChunkID: "a", Vector: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, core.ErrIndexNotReady)
}

func TestMemoryIndexDimensionMismatchRejected(t *testing.T) {
	idx := readyIndex(t, 3)
	err := idx.Insert(context.Background(), []core.Entry{
		{ChunkID: "bad", Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Zero(t, idx.Count())
}

func TestMemoryIndexSearchRankingOrder(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)

	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "far", Text: "far", Vector: []float32{0, 1}},
		{ChunkID: "near", Text: "near", Vector: []float32{1, 0.1}},
		{ChunkID: "exact", Text: "exact", Vector: []float32{1, 0}},
	}))
	buildAndLoad(t, idx)

	passages, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	assert.Equal(t, "exact", passages[0].ChunkID)
	assert.Equal(t, "near", passages[1].ChunkID)
	assert.Equal(t, "far", passages[2].ChunkID)
	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i-1].Score, passages[i].Score)
	}
}

func TestMemoryIndexTiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)

	// Identical vectors score identically; insertion order must decide.
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "first", Text: "first", Vector: []float32{1, 0}},
		{ChunkID: "second", Text: "second", Vector: []float32{1, 0}},
		{ChunkID: "third", Text: "third", Vector: []float32{1, 0}},
	}))
	buildAndLoad(t, idx)

	passages, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "first", passages[0].ChunkID)
	assert.Equal(t, "second", passages[1].ChunkID)
	assert.Equal(t, "third", passages[2].ChunkID)
}

func TestMemoryIndexTopKBeyondCountReturnsAll(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "only", Text: "only", Vector: []float32{1, 0}},
	}))
	buildAndLoad(t, idx)

	passages, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestMemoryIndexInvalidTopK(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)
	buildAndLoad(t, idx)

	_, err := idx.Search(ctx, []float32{1, 0}, 0)
	assert.Error(t, err)
}

func TestMemoryIndexInsertInvalidatesBuild(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "a", Vector: []float32{1, 0}},
	}))
	buildAndLoad(t, idx)

	// Appending after load drops the index back to schema_ready.
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "b", Vector: []float32{0, 1}},
	}))
	assert.Equal(t, core.StateSchemaReady, idx.State())

	_, err := idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, core.ErrIndexNotReady)
}

func TestMemoryIndexBuildBeforeSchemaFails(t *testing.T) {
	idx := NewMemoryIndex(2)
	assert.Error(t, idx.BuildIndex(context.Background()))
}

func TestMemoryIndexRepeatedBuildAndLoadAreNoOps(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)
	require.NoError(t, idx.Insert(ctx, []core.Entry{
		{ChunkID: "a", Text: "alpha", Vector: []float32{1, 0}},
	}))
	buildAndLoad(t, idx)

	// Rebuilding with nothing new inserted keeps the index searchable.
	require.NoError(t, idx.BuildIndex(ctx))
	require.NoError(t, idx.Load(ctx))
	assert.Equal(t, core.StateLoaded, idx.State())

	passages, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestMemoryIndexAppendOnlyDuplicates(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)

	entry := core.Entry{ChunkID: "dup", Text: "same text", Vector: []float32{1, 0}}
	require.NoError(t, idx.Insert(ctx, []core.Entry{entry}))
	require.NoError(t, idx.Insert(ctx, []core.Entry{entry}))

	// Re-ingestion appends rather than replacing.
	assert.Equal(t, 2, idx.Count())
}

func TestMemoryIndexConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	idx := readyIndex(t, 2)

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := idx.Insert(ctx, []core.Entry{{
					ChunkID: fmt.Sprintf("w%d-%d", w, i),
					Vector:  []float32{1, 0},
				}})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, idx.Count())
}
