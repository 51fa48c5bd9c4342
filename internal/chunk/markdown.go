package chunk

import (
	"strings"

	"github.com/whiteboxhub/agentic-rag/internal/core"
)

// headerPrefixes are the markdown heading levels used as first-class split
// points, tried deepest-first so "###" is not mistaken for "#".
var headerPrefixes = []string{"### ", "## ", "# "}

// section is a contiguous markdown region under one header path.
type section struct {
	path string
	body string
}

// MarkdownSplitter splits markdown documents on headers before applying
// size-based sub-splitting. Header metadata is threaded into each chunk's
// Section field so retrieval can filter by section.
type MarkdownSplitter struct {
	*Splitter
}

// NewMarkdownSplitter creates a markdown-aware splitter.
func NewMarkdownSplitter(chunkSize, overlap int) *MarkdownSplitter {
	return &MarkdownSplitter{Splitter: NewSplitter(chunkSize, overlap)}
}

// Split splits markdown text into chunks, preserving header boundaries.
// Positions are monotonic across the whole document.
func (m *MarkdownSplitter) Split(documentID, text string) []core.Chunk {
	sections := splitSections(text)

	var chunks []core.Chunk
	pos := 0
	for _, sec := range sections {
		secChunks := m.splitSection(documentID, sec.body, sec.path, pos)
		chunks = append(chunks, secChunks...)
		pos += len(secChunks)
	}
	return chunks
}

// splitSections walks the document line by line, starting a new section at
// every header and tracking the active header path per level.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")

	// Active header text per level (index 0 = "#").
	headers := make([]string, len(headerPrefixes))
	var sections []section
	var body strings.Builder

	flush := func() {
		if body.Len() > 0 {
			sections = append(sections, section{
				path: headerPath(headers),
				body: body.String(),
			})
			body.Reset()
		}
	}

	for _, line := range lines {
		level := headerLevel(line)
		if level < 0 {
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}
		flush()
		trimmed := strings.TrimLeft(line, " ")
		headers[level] = strings.TrimSpace(trimmed[len(headerPrefixes[len(headerPrefixes)-1-level]):])
		// A new header invalidates deeper levels.
		for i := level + 1; i < len(headers); i++ {
			headers[i] = ""
		}
	}
	flush()
	return sections
}

// headerLevel returns 0 for "#", 1 for "##", 2 for "###", -1 otherwise.
func headerLevel(line string) int {
	trimmed := strings.TrimLeft(line, " ")
	for i, prefix := range headerPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return len(headerPrefixes) - 1 - i
		}
	}
	return -1
}

// headerPath joins active headers as "H1 > H2 > H3".
func headerPath(headers []string) string {
	var parts []string
	for _, h := range headers {
		if h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, " > ")
}
