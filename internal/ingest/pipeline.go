package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/whiteboxhub/agentic-rag/internal/chunk"
	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

// Defaults for the ingestion worker pool.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 16
)

// Failure records one chunk that could not be embedded or inserted. Failures
// are isolated per unit; they never abort sibling units.
type Failure struct {
	DocumentID string
	ChunkID    string
	Err        error
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int
	Chunks    int
	Indexed   int
	Failures  []Failure
}

// Failed returns the number of per-unit failures.
func (r *Report) Failed() int { return len(r.Failures) }

// Options configures a Pipeline.
type Options struct {
	// Workers bounds the embedding/insertion worker pool.
	Workers int
	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int
	// ChunkSize and Overlap configure the splitters.
	ChunkSize int
	Overlap   int
}

// Pipeline turns raw documents into indexed vector entries: split into
// chunks, embed chunk batches on a bounded worker pool, insert into the
// index, then build and load it.
type Pipeline struct {
	embedder  core.Embedder
	index     core.VectorIndex
	text      *chunk.Splitter
	markdown  *chunk.MarkdownSplitter
	workers   int
	batchSize int
}

// New creates an ingestion pipeline over the given embedder and index.
func New(embedder core.Embedder, index core.VectorIndex, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		text:      chunk.NewSplitter(opts.ChunkSize, opts.Overlap),
		markdown:  chunk.NewMarkdownSplitter(opts.ChunkSize, opts.Overlap),
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
	}
}

// IngestDir reads all .txt and .md files under dir and ingests them. The
// file path relative to dir is the stable document identifier.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Report, error) {
	var chunks []core.Chunk
	documents := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" && ext != ".markdown" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docID, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			docID = path
		}
		docChunks := p.SplitDocument(docID, string(data), ext != ".txt")
		logger.Debug("Document %s produced %d chunks", docID, len(docChunks))
		chunks = append(chunks, docChunks...)
		documents++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk document directory: %w", err)
	}

	report, err := p.IngestChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	report.Documents = documents
	return report, nil
}

// SplitDocument splits one document into chunks, markdown-aware when asked.
func (p *Pipeline) SplitDocument(documentID, text string, markdown bool) []core.Chunk {
	if markdown {
		return p.markdown.Split(documentID, text)
	}
	return p.text.Split(documentID, text)
}

// IngestChunks embeds and inserts chunks on the worker pool, then builds and
// loads the index. A failed chunk is recorded in the report and skipped; the
// run only errors when the index itself cannot be brought up.
func (p *Pipeline) IngestChunks(ctx context.Context, chunks []core.Chunk) (*Report, error) {
	report := &Report{Chunks: len(chunks)}

	if err := p.index.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare index schema: %w", err)
	}

	if len(chunks) > 0 {
		jobs := make(chan []core.Chunk)
		var mu sync.Mutex
		var wg sync.WaitGroup

		for w := 0; w < p.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for batch := range jobs {
					indexed, failures := p.processBatch(ctx, batch)
					mu.Lock()
					report.Indexed += indexed
					report.Failures = append(report.Failures, failures...)
					mu.Unlock()
				}
			}()
		}

		for start := 0; start < len(chunks); start += p.batchSize {
			end := start + p.batchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			jobs <- chunks[start:end]
		}
		close(jobs)
		wg.Wait()
	}

	if err := p.index.BuildIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if err := p.index.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	logger.Info("Ingestion complete: %d/%d chunks indexed, %d failures",
		report.Indexed, report.Chunks, report.Failed())
	return report, nil
}

// processBatch embeds and inserts one batch. When the batched embedding call
// fails, chunks are retried individually so one bad unit cannot take down its
// batch mates.
func (p *Pipeline) processBatch(ctx context.Context, batch []core.Chunk) (int, []Failure) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var entries []core.Entry
	var failures []Failure

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(batch) {
		if err != nil {
			logger.Warn("Batch embedding failed, retrying chunks individually: %v", err)
		}
		for _, c := range batch {
			vector, embedErr := p.embedder.EmbedQuery(ctx, c.Text)
			if embedErr != nil {
				logger.Error("Failed to embed chunk %s of %s: %v", c.ID, c.DocumentID, embedErr)
				failures = append(failures, Failure{DocumentID: c.DocumentID, ChunkID: c.ID, Err: embedErr})
				continue
			}
			entries = append(entries, entryFor(c, vector))
		}
	} else {
		for i, c := range batch {
			entries = append(entries, entryFor(c, vectors[i]))
		}
	}

	if len(entries) == 0 {
		return 0, failures
	}
	if err := p.index.Insert(ctx, entries); err != nil {
		logger.Error("Failed to insert batch: %v", err)
		for _, e := range entries {
			failures = append(failures, Failure{DocumentID: e.DocumentID, ChunkID: e.ChunkID, Err: err})
		}
		return 0, failures
	}
	return len(entries), failures
}

func entryFor(c core.Chunk, vector []float32) core.Entry {
	return core.Entry{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		Section:    c.Section,
		Text:       c.Text,
		Vector:     vector,
	}
}
