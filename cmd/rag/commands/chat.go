package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatDir string

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive question-answering session",
		Long: `Chat starts an interactive session. Each line is routed through the
orchestration graph; type "exit" or "quit" to leave.

Examples:
  rag chat --dir ./data --offline`,
		RunE: runChat,
	}

	cmd.Flags().StringVar(&chatDir, "dir", "",
		"Optional directory of documents to ingest before the session")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	if chatDir != "" {
		if _, err := svc.ingestDir(ctx, chatDir); err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Agentic RAG system running. Type 'exit' to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nUser: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}
		result := svc.graph.AnswerQuery(ctx, query)
		fmt.Fprintf(out, "Agent: %s\n", result.Answer)
	}
	return scanner.Err()
}
