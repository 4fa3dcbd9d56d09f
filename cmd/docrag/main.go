package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docrag/internal/cli"
	"github.com/cloo-solutions/docrag/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "docrag CLI - document parsing, ingestion and semantic retrieval",
		Long: `docrag CLI talks to a docrag server to parse files, ingest them as
searchable documents and run similarity queries.

Environment variables:
  DOCRAG_API_KEY   API key for authentication (required)
  DOCRAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.ParseCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.RankCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.EmbedCmd())

	cli.CheckHelpJSON(rootCmd, os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
