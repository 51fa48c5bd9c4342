package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestDir string

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the vector index",
		Long: `Ingest reads all .txt and .md files under a directory, splits them into
overlapping chunks, embeds the chunks and indexes them for retrieval.

Per-document failures are reported without aborting the run.

Examples:
  rag ingest --dir ./data
  rag ingest --dir ./data --offline --debug`,
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestDir, "dir", "./data", "Directory of source documents")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	report, err := svc.ingestDir(ctx, ingestDir)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Documents: %d\n", report.Documents)
	fmt.Fprintf(out, "Chunks:    %d\n", report.Chunks)
	fmt.Fprintf(out, "Indexed:   %d\n", report.Indexed)
	fmt.Fprintf(out, "Failed:    %d\n", report.Failed())
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  %s/%s: %v\n", f.DocumentID, f.ChunkID, f.Err)
	}
	return nil
}
