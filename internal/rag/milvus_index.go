package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

// Field names for the chunk collection
const (
	FieldID         = "id"
	FieldDocumentID = "document_id"
	FieldSection    = "section"
	FieldText       = "text"
	FieldVector     = "vector"
)

// DefaultCollection is the collection holding document chunks.
const DefaultCollection = "document_chunks"

// VarChar length limits for the collection schema
const (
	idMaxLength   = "255"
	textMaxLength = "65535"
)

// MilvusIndex is a vector index backed by a Milvus collection with COSINE
// metric. The lifecycle (schema → insert → build → load) maps directly onto
// Milvus collection, index and load operations.
type MilvusIndex struct {
	mu         sync.Mutex
	client     *milvusclient.Client
	collection string
	dim        int
	state      core.IndexState
	building   bool
	count      int
}

// NewMilvusIndex connects to Milvus at addr and returns an index for vectors
// of the given dimensionality.
func NewMilvusIndex(ctx context.Context, addr, collection string, dim int) (*MilvusIndex, error) {
	logger.Info("Connecting to Milvus at %s with dimension %d", addr, dim)

	if collection == "" {
		collection = DefaultCollection
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimensionality %d", dim)
	}

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: addr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	return &MilvusIndex{
		client:     c,
		collection: collection,
		dim:        dim,
		state:      core.StateUninitialized,
	}, nil
}

// EnsureSchema creates the chunk collection if it does not exist.
func (idx *MilvusIndex) EnsureSchema(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	hasOpt := milvusclient.NewHasCollectionOption(idx.collection)
	exists, err := idx.client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: idx.collection,
			Description:    "Document chunks with embeddings",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     FieldDocumentID,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     FieldSection,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": textMaxLength,
					},
				},
				{
					Name:     FieldText,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": textMaxLength,
					},
				},
				{
					Name:     FieldVector,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", idx.dim),
					},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(idx.collection, schema)
		if err := idx.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.Info("Created collection: %s", idx.collection)
	}

	if idx.state == core.StateUninitialized {
		idx.state = core.StateSchemaReady
	}
	return nil
}

// Insert appends entries to the collection. Milvus serializes concurrent
// appends server-side; the local lock only guards lifecycle state.
func (idx *MilvusIndex) Insert(ctx context.Context, entries []core.Entry) error {
	idx.mu.Lock()
	if idx.state == core.StateUninitialized {
		idx.mu.Unlock()
		return fmt.Errorf("insert before schema creation: %w", core.ErrIndexNotReady)
	}
	idx.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	docIDs := make([]string, len(entries))
	sections := make([]string, len(entries))
	texts := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
				core.ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dim)
		}
		ids[i] = e.ChunkID
		docIDs[i] = e.DocumentID
		sections[i] = e.Section
		texts[i] = e.Text
		vectors[i] = e.Vector
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(idx.collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldDocumentID, docIDs),
		column.NewColumnVarChar(FieldSection, sections),
		column.NewColumnVarChar(FieldText, texts),
		column.NewColumnFloatVector(FieldVector, idx.dim, vectors),
	)
	if _, err := idx.client.Insert(ctx, insertOpt); err != nil {
		return fmt.Errorf("failed to insert entries: %w", err)
	}

	idx.mu.Lock()
	idx.count += len(entries)
	// New entries invalidate a previously built index.
	idx.state = core.StateSchemaReady
	idx.mu.Unlock()
	return nil
}

// BuildIndex flushes inserted entries and builds the ANN structure over the
// vector field. Non-reentrant; a failed build leaves the index schema_ready,
// and building with nothing new inserted succeeds without touching the
// collection.
func (idx *MilvusIndex) BuildIndex(ctx context.Context) error {
	idx.mu.Lock()
	if idx.building {
		idx.mu.Unlock()
		return core.ErrBuildInProgress
	}
	switch idx.state {
	case core.StateIndexed, core.StateLoaded:
		// Nothing inserted since the last build.
		idx.mu.Unlock()
		return nil
	case core.StateSchemaReady:
	default:
		state := idx.state
		idx.mu.Unlock()
		return fmt.Errorf("cannot build index in state %s", state)
	}
	idx.building = true
	idx.mu.Unlock()

	defer func() {
		idx.mu.Lock()
		idx.building = false
		idx.mu.Unlock()
	}()

	flushOpt := milvusclient.NewFlushOption(idx.collection)
	flushTask, err := idx.client.Flush(ctx, flushOpt)
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to await flush: %w", err)
	}

	vecIdx := index.NewHNSWIndex(entity.COSINE, 16, 200)
	indexOpt := milvusclient.NewCreateIndexOption(idx.collection, FieldVector, vecIdx)
	indexTask, err := idx.client.CreateIndex(ctx, indexOpt)
	if err != nil {
		return fmt.Errorf("failed to create index on vector field: %w", err)
	}
	if err := indexTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to await index build: %w", err)
	}

	idx.mu.Lock()
	idx.state = core.StateIndexed
	idx.mu.Unlock()
	logger.Info("Built vector index on collection %s", idx.collection)
	return nil
}

// Load loads the collection into memory so it can be searched. Loading an
// already loaded index is a no-op.
func (idx *MilvusIndex) Load(ctx context.Context) error {
	idx.mu.Lock()
	switch idx.state {
	case core.StateLoaded:
		idx.mu.Unlock()
		return nil
	case core.StateIndexed:
	default:
		state := idx.state
		idx.mu.Unlock()
		return fmt.Errorf("cannot load index in state %s", state)
	}
	idx.mu.Unlock()

	loadOpt := milvusclient.NewLoadCollectionOption(idx.collection)
	loadTask, err := idx.client.LoadCollection(ctx, loadOpt)
	if err != nil {
		return fmt.Errorf("failed to load collection %s: %w", idx.collection, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to await collection load: %w", err)
	}

	idx.mu.Lock()
	idx.state = core.StateLoaded
	idx.mu.Unlock()
	logger.Info("Collection %s loaded and ready for search", idx.collection)
	return nil
}

// Search returns up to topK entries ordered by descending cosine similarity.
// Searching before the collection is loaded fails closed with
// ErrIndexNotReady.
func (idx *MilvusIndex) Search(ctx context.Context, vector []float32, topK int) ([]core.Passage, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	idx.mu.Lock()
	state := idx.state
	idx.mu.Unlock()
	if state != core.StateLoaded {
		return nil, core.ErrIndexNotReady
	}

	searchOpt := milvusclient.NewSearchOption(idx.collection, topK, []entity.Vector{
		entity.FloatVector(vector),
	}).
		WithANNSField(FieldVector).
		WithOutputFields(FieldID, FieldText, FieldSection)

	results, err := idx.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	if len(results) == 0 {
		return []core.Passage{}, nil
	}

	rs := results[0]
	passages := make([]core.Passage, 0, rs.ResultCount)
	textCol := rs.GetColumn(FieldText)
	sectionCol := rs.GetColumn(FieldSection)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			logger.Warn("Failed to read result id at %d: %v", i, err)
			continue
		}
		text := ""
		if textCol != nil {
			if v, err := textCol.GetAsString(i); err == nil {
				text = v
			}
		}
		section := ""
		if sectionCol != nil {
			if v, err := sectionCol.GetAsString(i); err == nil {
				section = v
			}
		}
		score := float32(0)
		if i < len(rs.Scores) {
			score = rs.Scores[i]
		}
		passages = append(passages, core.Passage{
			ChunkID: id,
			Text:    text,
			Section: section,
			Score:   score,
		})
	}
	return passages, nil
}

// State returns the current lifecycle state.
func (idx *MilvusIndex) State() core.IndexState {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.state
}

// Count returns the number of entries inserted through this index instance.
func (idx *MilvusIndex) Count() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.count
}

// Close closes the connection to Milvus.
func (idx *MilvusIndex) Close() error {
	return idx.client.Close(context.Background())
}
