package commands

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/whiteboxhub/agentic-rag/internal/embed"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
)

var (
	debug      bool
	offline    bool
	dim        int
	collection string
	topK       int
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Retrieval-augmented query pipeline",
		Long: `rag ingests documents into a vector index and answers natural-language
questions by routing them through specialized agents grounded in retrieved
passages.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load environment variables from .env file
			if err := godotenv.Load(); err != nil {
				logger.Debug("No .env file found or error loading it")
			}
			logger.Init(debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false,
		"Use the in-process index and deterministic embedder instead of Milvus and OpenAI")
	cmd.PersistentFlags().IntVar(&dim, "dim", envIntWithDefault("EMBEDDING_DIM", embed.DefaultDim),
		"Embedding dimensionality")
	cmd.PersistentFlags().StringVar(&collection, "collection", envWithDefault("MILVUS_COLLECTION", ""),
		"Milvus collection name (defaults to document_chunks)")
	cmd.PersistentFlags().IntVar(&topK, "top-k", 5, "Passages retrieved per agent call")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}

// envWithDefault gets an environment variable or returns a default value.
func envWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// envIntWithDefault gets an integer environment variable or returns a
// default value.
func envIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
