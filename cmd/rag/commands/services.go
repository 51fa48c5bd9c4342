package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/whiteboxhub/agentic-rag/internal/agent"
	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/embed"
	"github.com/whiteboxhub/agentic-rag/internal/ingest"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
	"github.com/whiteboxhub/agentic-rag/internal/memory"
	"github.com/whiteboxhub/agentic-rag/internal/rag"
	"github.com/whiteboxhub/agentic-rag/internal/retriever"
)

// services bundles the wired pipeline components for one command run.
type services struct {
	embedder core.Embedder
	index    core.VectorIndex
	engine   *retriever.Engine
	graph    *agent.Graph
	memory   *memory.Manager
}

// buildServices wires embedder, index, retrieval engine and orchestration
// graph from flags and environment. Offline mode swaps in the in-process
// index and the deterministic embedder.
func buildServices(ctx context.Context) (*services, error) {
	var embedder core.Embedder
	var index core.VectorIndex
	var err error

	apiKey := os.Getenv("OPENAI_API_KEY")
	if offline || apiKey == "" {
		if !offline {
			logger.Warn("OPENAI_API_KEY not set, falling back to the deterministic local embedder")
		}
		embedder = embed.NewLocalEmbedder(dim)
	} else {
		embedder, err = embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey: apiKey,
			Dim:    dim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	if offline {
		index = rag.NewMemoryIndex(embedder.Dim())
	} else {
		addr := envWithDefault("MILVUS_HOST", "localhost") + ":" + envWithDefault("MILVUS_PORT", "19530")
		index, err = rag.NewMilvusIndex(ctx, addr, collection, embedder.Dim())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Milvus index: %w", err)
		}
	}

	if err := openIndex(ctx, index); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	engine := retriever.New(embedder, index, 0)
	mem := memory.NewManager()
	graph, err := agent.NewGraph(engine, mem, topK)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to build orchestration graph: %w", err)
	}

	return &services{
		embedder: embedder,
		index:    index,
		engine:   engine,
		graph:    graph,
		memory:   mem,
	}, nil
}

// openIndex drives a fresh index to the loaded state so queries can search
// entries ingested by earlier runs. For a Milvus-backed index this attaches
// to the existing collection; ingestion later re-runs the build over anything
// newly inserted.
func openIndex(ctx context.Context, index core.VectorIndex) error {
	if err := index.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := index.BuildIndex(ctx); err != nil {
		return err
	}
	return index.Load(ctx)
}

// ingestDir runs the ingestion pipeline over a document directory.
func (s *services) ingestDir(ctx context.Context, dir string) (*ingest.Report, error) {
	pipeline := ingest.New(s.embedder, s.index, ingest.Options{})
	return pipeline.IngestDir(ctx, dir)
}

// close releases the wired components.
func (s *services) close() {
	if err := s.index.Close(); err != nil {
		logger.Warn("Failed to close index: %v", err)
	}
}
