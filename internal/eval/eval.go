package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/whiteboxhub/agentic-rag/internal/core"
)

// Defaults for the retrieval-quality acceptance contract.
const (
	DefaultK         = 5
	DefaultThreshold = 0.6
)

// Expectation is one ground-truth item: a query and the chunks a good
// retriever should surface for it.
type Expectation struct {
	Query          string   `json:"query"`
	RelevantChunks []string `json:"relevant_chunks"`
}

// QueryResult holds precision/recall for one query.
type QueryResult struct {
	Query     string  `json:"query"`
	Hits      int     `json:"hits"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Summary aggregates results across the ground-truth set.
type Summary struct {
	Results       []QueryResult `json:"results"`
	MeanPrecision float64       `json:"mean_precision"`
	MeanRecall    float64       `json:"mean_recall"`
	K             int           `json:"k"`
	Threshold     float64       `json:"threshold"`
}

// Evaluator computes precision@k and recall@k for a retriever. A retrieved
// passage counts as a hit when its embedding's cosine similarity to some
// relevant chunk exceeds the threshold.
type Evaluator struct {
	retriever core.Retriever
	embedder  core.Embedder
	k         int
	threshold float64
}

// New creates an evaluator. Non-positive k and threshold fall back to the
// defaults.
func New(retriever core.Retriever, embedder core.Embedder, k int, threshold float64) *Evaluator {
	if k <= 0 {
		k = DefaultK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Evaluator{
		retriever: retriever,
		embedder:  embedder,
		k:         k,
		threshold: threshold,
	}
}

// LoadExpectations reads a ground-truth JSON file: an array of
// {query, relevant_chunks} objects.
func LoadExpectations(path string) ([]Expectation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth file: %w", err)
	}
	var expectations []Expectation
	if err := json.Unmarshal(data, &expectations); err != nil {
		return nil, fmt.Errorf("failed to parse ground truth file: %w", err)
	}
	return expectations, nil
}

// Evaluate runs every expectation through the retriever and computes
// per-query and mean precision/recall.
func (e *Evaluator) Evaluate(ctx context.Context, expectations []Expectation) (Summary, error) {
	summary := Summary{K: e.k, Threshold: e.threshold}
	if len(expectations) == 0 {
		return summary, fmt.Errorf("no query expectations supplied")
	}

	for _, exp := range expectations {
		query := strings.TrimSpace(exp.Query)
		if query == "" || len(exp.RelevantChunks) == 0 {
			continue
		}

		passages, err := e.retriever.Retrieve(ctx, query, e.k)
		if err != nil {
			return summary, fmt.Errorf("retrieve %q: %w", query, err)
		}

		hits, err := e.countHits(ctx, passages, exp.RelevantChunks)
		if err != nil {
			return summary, fmt.Errorf("score %q: %w", query, err)
		}

		result := QueryResult{
			Query:     query,
			Hits:      hits,
			Precision: float64(hits) / float64(e.k),
			Recall:    float64(hits) / float64(len(exp.RelevantChunks)),
		}
		summary.Results = append(summary.Results, result)
	}

	if len(summary.Results) == 0 {
		return summary, fmt.Errorf("ground truth contained no usable expectations")
	}
	for _, r := range summary.Results {
		summary.MeanPrecision += r.Precision
		summary.MeanRecall += r.Recall
	}
	summary.MeanPrecision /= float64(len(summary.Results))
	summary.MeanRecall /= float64(len(summary.Results))
	return summary, nil
}

// countHits embeds retrieved passages and relevant chunks, counting a
// retrieved passage as a hit when it clears the similarity threshold against
// any relevant chunk.
func (e *Evaluator) countHits(ctx context.Context, passages []core.Passage, relevant []string) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}

	retrievedTexts := make([]string, len(passages))
	for i, p := range passages {
		retrievedTexts[i] = p.Text
	}
	retrievedVecs, err := e.embedder.EmbedBatch(ctx, retrievedTexts)
	if err != nil {
		return 0, fmt.Errorf("embed retrieved passages: %w", err)
	}
	relevantVecs, err := e.embedder.EmbedBatch(ctx, relevant)
	if err != nil {
		return 0, fmt.Errorf("embed relevant chunks: %w", err)
	}

	hits := 0
	for _, rv := range retrievedVecs {
		for _, gv := range relevantVecs {
			if cosine(rv, gv) > e.threshold {
				hits++
				break
			}
		}
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
