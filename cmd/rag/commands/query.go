package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryDir string

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer one question",
		Long: `Query classifies the question's intent, routes it to the matching agent
and prints the grounded answer.

Examples:
  rag query "What does the policy cover?"
  rag query --dir ./data --offline "Why was my claim denied based on policy?"`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().StringVar(&queryDir, "dir", "",
		"Optional directory of documents to ingest before answering")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	if queryDir != "" {
		if _, err := svc.ingestDir(ctx, queryDir); err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
	}

	result := svc.graph.AnswerQuery(ctx, args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Intent: %s\n%s\n", result.Intent, result.Answer)
	return nil
}
