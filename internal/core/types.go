package core

// Chunk is a bounded contiguous span of a source document, the unit of
// embedding and retrieval. Position is the chunk's ordinal within its source.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	// Section carries the markdown header path the chunk was split under,
	// empty for plain-text documents.
	Section string `json:"section,omitempty"`
}

// Entry is the unit stored and searched by a vector index.
type Entry struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id,omitempty"`
	Section    string    `json:"section,omitempty"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// Passage is a retrieved chunk plus its similarity score. Score is cosine
// similarity in [-1, 1], higher is more relevant.
type Passage struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Section string  `json:"section,omitempty"`
	Score   float32 `json:"score"`
}

// IndexState tracks the lifecycle of a vector index.
type IndexState int

const (
	StateUninitialized IndexState = iota
	StateSchemaReady
	StateInserting
	StateIndexed
	StateLoaded
)

// String returns the lowercase name of the state.
func (s IndexState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSchemaReady:
		return "schema_ready"
	case StateInserting:
		return "inserting"
	case StateIndexed:
		return "indexed"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}
