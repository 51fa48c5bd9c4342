package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalizeWhitespace collapses all runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestSplitEmptyDocument(t *testing.T) {
	s := NewSplitter(100, 20)

	assert.Empty(t, s.Split("doc", ""))
	assert.Empty(t, s.Split("doc", "   \n\t  \n"))
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)

	chunks := s.Split("doc", "A short document.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short document.", chunks[0].Text)
	assert.Equal(t, "doc", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Position)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"no overlap", 80, 0},
		{"small overlap", 100, 30},
		{"large overlap", 120, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.chunkSize, tt.overlap)
			chunks := s.Split("doc", text)
			require.Greater(t, len(chunks), 1)
			// The overlap prefix counts against the chunk size.
			for _, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c.Text)), tt.chunkSize,
					"chunk %d too large", c.Position)
			}
		})
	}
}

func TestSplitPositionsMonotonic(t *testing.T) {
	s := NewSplitter(50, 10)

	text := strings.Repeat("One sentence here. Another sentence follows. ", 20)
	chunks := s.Split("doc", text)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
	}
}

func TestSplitOversizedAtomicUnitKeptWhole(t *testing.T) {
	s := NewSplitter(20, 0)

	// A single word longer than the chunk size has no separator to split
	// on: it must be kept whole, not cut mid-token.
	word := strings.Repeat("x", 50)
	chunks := s.Split("doc", word)
	require.Len(t, chunks, 1)
	assert.Equal(t, word, chunks[0].Text)
}

func TestSplitConsecutiveChunksShareOverlap(t *testing.T) {
	overlap := 15
	s := NewSplitter(60, overlap)

	text := strings.Repeat("Alpha beta gamma delta epsilon zeta. ", 15)
	chunks := s.Split("doc", text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevBody := chunks[i-1].Text
		if i > 1 {
			// Strip the previous chunk's own overlap prefix to get
			// its body.
			prevRunes := []rune(prevBody)
			prevBody = string(prevRunes[min(overlap, len(prevRunes)):])
		}
		want := tail(prevBody, overlap)
		assert.True(t, strings.HasPrefix(chunks[i].Text, want),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestReconstructLossless(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		text      string
	}{
		{"paragraphs", 100, 20, "First paragraph with content.\n\nSecond paragraph here.\n\nThird one closes the document."},
		{"sentences", 50, 10, strings.Repeat("A sentence that carries meaning. ", 12)},
		{"no overlap", 60, 0, strings.Repeat("Words flow through the splitter here. ", 10)},
		{"long document", 200, 40, strings.Repeat("Medicaid covers hospitalization, preventive care, and maternity benefits. Claims are processed within ten business days. ", 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.chunkSize, tt.overlap)
			chunks := s.Split("doc", tt.text)
			require.NotEmpty(t, chunks)

			got := Reconstruct(chunks, tt.overlap)
			assert.Equal(t, normalizeWhitespace(tt.text), normalizeWhitespace(got))
		})
	}
}

func TestMarkdownSplitterSectionMetadata(t *testing.T) {
	m := NewMarkdownSplitter(200, 0)

	text := "# Coverage\nMedicaid covers hospitalization and preventive care.\n" +
		"## Maternity\nMaternity benefits are included for eligible members.\n" +
		"# Claims\nClaims are processed within ten business days."

	chunks := m.Split("doc.md", text)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Coverage", chunks[0].Section)
	assert.Equal(t, "Coverage > Maternity", chunks[1].Section)
	assert.Equal(t, "Claims", chunks[2].Section)

	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
	}
}

func TestMarkdownSplitterHeaderReset(t *testing.T) {
	m := NewMarkdownSplitter(200, 0)

	text := "# One\n## Sub\nbody a\n# Two\nbody b"
	chunks := m.Split("doc.md", text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "One > Sub", chunks[0].Section)
	assert.Equal(t, "Two", chunks[1].Section)
}

func TestMarkdownSplitterPlainTextNoSections(t *testing.T) {
	m := NewMarkdownSplitter(200, 0)

	chunks := m.Split("doc.md", "Just a body with no headers at all.")
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Section)
}
