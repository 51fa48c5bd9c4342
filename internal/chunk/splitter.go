package chunk

import (
	"strings"

	"github.com/google/uuid"
	"github.com/whiteboxhub/agentic-rag/internal/core"
)

// Default splitting parameters. Overlap is the number of characters of
// trailing context a chunk shares with its successor.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 150
)

// defaultSeparators is the cascade tried in order when a piece of text is
// still larger than the chunk size. A piece that no separator can shrink is
// kept whole rather than split mid-token.
var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", " "}

// Splitter splits document text into overlapping chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter with the given chunk size and overlap.
// Non-positive values fall back to the defaults; the overlap is clamped
// below the chunk size so every chunk keeps room for its own content.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// ChunkSize returns the configured maximum chunk length in characters.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap length in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// bodyBudget is the packing limit for a chunk's own content. The overlap
// prefix inherited from the previous chunk is counted inside the chunk size,
// so a chunk only exceeds it when a single unsplittable unit does.
func (s *Splitter) bodyBudget() int { return s.chunkSize - s.overlap }

// Split splits text into chunks for the given document. Empty or
// whitespace-only input produces zero chunks. Positions are assigned
// monotonically starting at 0.
func (s *Splitter) Split(documentID, text string) []core.Chunk {
	return s.splitSection(documentID, text, "", 0)
}

// splitSection splits one logical section of a document, tagging every chunk
// with the section label and numbering positions from startPos.
func (s *Splitter) splitSection(documentID, text, section string, startPos int) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.splitPieces(text, s.separators)
	groups := s.assemble(pieces)

	chunks := make([]core.Chunk, 0, len(groups))
	pos := startPos
	var prev string
	for _, group := range groups {
		if strings.TrimSpace(group) == "" {
			// Degenerate group, excluded but it still feeds overlap
			// context for its successor.
			prev = group
			continue
		}
		body := group
		if prev != "" && s.overlap > 0 {
			body = tail(prev, s.overlap) + group
		}
		chunks = append(chunks, core.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Position:   pos,
			Text:       body,
			Section:    section,
		})
		pos++
		prev = group
	}
	return chunks
}

// splitPieces recursively splits text into pieces no larger than the body
// budget where the separator cascade allows it. Concatenating the returned
// pieces reproduces text exactly: separators stay attached to the piece they
// terminate.
func (s *Splitter) splitPieces(text string, separators []string) []string {
	if len([]rune(text)) <= s.bodyBudget() || len(separators) == 0 {
		return []string{text}
	}

	sep := separators[0]
	rest := separators[1:]
	if !strings.Contains(text, sep) {
		return s.splitPieces(text, rest)
	}

	parts := strings.SplitAfter(text, sep)
	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len([]rune(part)) > s.bodyBudget() {
			pieces = append(pieces, s.splitPieces(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// assemble greedily packs pieces into groups no larger than the body budget,
// so a group plus its overlap prefix stays within the chunk size. A single
// piece that already exceeds the budget becomes a group of its own.
func (s *Splitter) assemble(pieces []string) []string {
	var groups []string
	var buf strings.Builder
	bufLen := 0
	for _, piece := range pieces {
		n := len([]rune(piece))
		if bufLen > 0 && bufLen+n > s.bodyBudget() {
			groups = append(groups, buf.String())
			buf.Reset()
			bufLen = 0
		}
		buf.WriteString(piece)
		bufLen += n
	}
	if bufLen > 0 {
		groups = append(groups, buf.String())
	}
	return groups
}

// tail returns the last n characters of text, or all of it when shorter.
func tail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// Reconstruct concatenates chunks produced by a Splitter with the given
// overlap, stripping each chunk's leading overlap context. The result matches
// the original text up to whitespace normalization.
func Reconstruct(chunks []core.Chunk, overlap int) string {
	var b strings.Builder
	prevBodyLen := 0
	for i, c := range chunks {
		runes := []rune(c.Text)
		strip := 0
		if i > 0 {
			// The overlap prefix is capped by the previous chunk's
			// own body length.
			strip = min(overlap, prevBodyLen)
			if strip > len(runes) {
				strip = len(runes)
			}
		}
		b.WriteString(string(runes[strip:]))
		prevBodyLen = len(runes) - strip
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
