package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whiteboxhub/agentic-rag/internal/eval"
)

var (
	evalGroundTruth string
	evalDir         string
	evalK           int
	evalThreshold   float64
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate retrieval quality against a ground-truth set",
		Long: `Eval computes precision@k and recall@k for the retriever. A retrieved
passage counts as a hit when its similarity to some relevant chunk exceeds
the threshold.

Examples:
  rag eval --ground-truth ./ground_truth.json --k 3
  rag eval --ground-truth ./ground_truth.json --dir ./data --offline`,
		RunE: runEval,
	}

	cmd.Flags().StringVar(&evalGroundTruth, "ground-truth", "./ground_truth.json",
		"JSON file of {query, relevant_chunks} expectations")
	cmd.Flags().StringVar(&evalDir, "dir", "",
		"Optional directory of documents to ingest before evaluating")
	cmd.Flags().IntVar(&evalK, "k", eval.DefaultK, "Cutoff for precision@k / recall@k")
	cmd.Flags().Float64Var(&evalThreshold, "threshold", eval.DefaultThreshold,
		"Similarity threshold for counting a hit")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	expectations, err := eval.LoadExpectations(evalGroundTruth)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	if evalDir != "" {
		if _, err := svc.ingestDir(ctx, evalDir); err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
	}

	evaluator := eval.New(svc.engine, svc.embedder, evalK, evalThreshold)
	summary, err := evaluator.Evaluate(ctx, expectations)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range summary.Results {
		fmt.Fprintf(out, "Query: %s\n", r.Query)
		fmt.Fprintf(out, "  Precision@%d: %.2f, Recall@%d: %.2f\n", summary.K, r.Precision, summary.K, r.Recall)
	}
	fmt.Fprintf(out, "\nAverage Precision@%d: %.2f\n", summary.K, summary.MeanPrecision)
	fmt.Fprintf(out, "Average Recall@%d: %.2f\n", summary.K, summary.MeanRecall)
	return nil
}
