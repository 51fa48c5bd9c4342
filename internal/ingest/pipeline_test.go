package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/embed"
	"github.com/whiteboxhub/agentic-rag/internal/rag"
)

// failMarker poisons a chunk so the flaky embedder rejects it.
const failMarker = "EMBED_FAILURE"

var errEngineered = errors.New("engineered embedding failure")

// flakyEmbedder embeds deterministically but fails any text carrying the
// fail marker. A batch containing one poisoned text fails wholesale, forcing
// the pipeline onto its per-chunk isolation path.
type flakyEmbedder struct {
	inner *embed.LocalEmbedder
}

func newFlakyEmbedder(dim int) *flakyEmbedder {
	return &flakyEmbedder{inner: embed.NewLocalEmbedder(dim)}
}

func (f *flakyEmbedder) Dim() int { return f.inner.Dim() }

func (f *flakyEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, failMarker) {
		return nil, errEngineered
	}
	return f.inner.EmbedQuery(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, failMarker) {
			return nil, errEngineered
		}
	}
	return f.inner.EmbedBatch(ctx, texts)
}

func TestIngestChunksScaleWithPartialFailures(t *testing.T) {
	ctx := context.Background()
	embedder := newFlakyEmbedder(32)
	index := rag.NewMemoryIndex(32)
	pipeline := New(embedder, index, Options{Workers: 4, BatchSize: 16})

	// 1,000 chunks, ten of them engineered to fail embedding.
	chunks := make([]core.Chunk, 1000)
	for i := range chunks {
		text := fmt.Sprintf("chunk number %d with some content", i)
		if i%100 == 50 {
			text = failMarker
		}
		chunks[i] = core.Chunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: fmt.Sprintf("doc-%d", i/100),
			Position:   i % 100,
			Text:       text,
		}
	}

	report, err := pipeline.IngestChunks(ctx, chunks)
	require.NoError(t, err)

	assert.Equal(t, 1000, report.Chunks)
	assert.Equal(t, 990, report.Indexed)
	assert.Equal(t, 10, report.Failed())
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, errEngineered)
	}

	assert.Equal(t, 990, index.Count())
	assert.Equal(t, core.StateLoaded, index.State())
}

func TestIngestChunksEmptyInputStillLoadsIndex(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex(16)
	pipeline := New(embed.NewLocalEmbedder(16), index, Options{})

	report, err := pipeline.IngestChunks(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	assert.Zero(t, report.Indexed)
	assert.Equal(t, core.StateLoaded, index.State())
}

func TestIngestChunksEmptyRerunAgainstLoadedIndex(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewLocalEmbedder(16)
	index := rag.NewMemoryIndex(16)
	pipeline := New(embedder, index, Options{})

	first, err := pipeline.IngestChunks(ctx, []core.Chunk{
		{ID: "c1", DocumentID: "doc", Text: "eligibility rules apply"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Indexed)

	// Re-running over nothing new must not abort a loaded index.
	second, err := pipeline.IngestChunks(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Chunks)
	assert.Equal(t, core.StateLoaded, index.State())
	assert.Equal(t, 1, index.Count())
}

func TestIngestDirReadsTextAndMarkdown(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.txt"),
		[]byte("Medicaid covers hospitalization, preventive care, and maternity benefits."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims.md"),
		[]byte("# Claims\nClaims are processed within ten business days after submission."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.pdf"),
		[]byte("binary-ish"), 0o644))

	index := rag.NewMemoryIndex(32)
	pipeline := New(embed.NewLocalEmbedder(32), index, Options{})

	report, err := pipeline.IngestDir(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, report.Chunks, report.Indexed)
	assert.Empty(t, report.Failures)
	assert.Equal(t, core.StateLoaded, index.State())
	assert.Positive(t, index.Count())
}

func TestIngestDirAssignsDocumentIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("Eligibility rules require continuous enrollment."), 0o644))

	pipeline := New(embed.NewLocalEmbedder(16), rag.NewMemoryIndex(16), Options{})
	chunks := pipeline.SplitDocument("notes.txt", "Eligibility rules require continuous enrollment.", false)
	require.Len(t, chunks, 1)
	assert.Equal(t, "notes.txt", chunks[0].DocumentID)
	assert.NotEmpty(t, chunks[0].ID)
}
