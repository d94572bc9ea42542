package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ttsoftware/ragline/internal/app"
	"github.com/ttsoftware/ragline/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question through the retrieval pipeline",
	Long: `ask runs one question through the full pipeline (embed, search,
complete) and prints the answer. Useful for testing the knowledge base
without going through the LINE platform.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	answer, err := a.Pipeline.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)
	return nil
}
