// Package cmd implements the ragline CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "ragline - retrieval-augmented LINE chat responder",
	Long: `ragline answers LINE messages with OpenAI completions grounded in a
pgvector knowledge base.

Run "ragline serve" to start the webhook server, "ragline seed" to
(re)build the knowledge collection, or "ragline ask" to test the
pipeline from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit logs as JSON")
}
