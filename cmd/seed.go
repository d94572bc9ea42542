package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ttsoftware/ragline/internal/app"
	"github.com/ttsoftware/ragline/internal/config"
	"github.com/ttsoftware/ragline/internal/knowledge"
	"github.com/ttsoftware/ragline/internal/seed"
)

var (
	seedFile string
	seedKeep bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Rebuild the knowledge collection from the corpus",
	Long: `seed embeds every corpus entry and loads it into the vector
collection. By default the collection is dropped and recreated first, so
the result reflects exactly the current corpus; use --keep to append to
the existing collection instead.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "corpus file, one entry per line (default: built-in corpus)")
	seedCmd.Flags().BoolVar(&seedKeep, "keep", false, "append to the existing collection instead of rebuilding it")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	file := seedFile
	if file == "" {
		file = cfg.SeedFile
	}
	corpus, err := seed.Load(file)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	if seedKeep {
		err = a.Knowledge.Initialize(ctx)
	} else {
		err = a.Knowledge.Reset(ctx)
	}
	if err != nil {
		return fmt.Errorf("preparing collection: %w", err)
	}

	records := make([]knowledge.SeedRecord, 0, len(corpus))
	for _, text := range corpus {
		embedding, err := a.LLM.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embedding corpus entry: %w", err)
		}
		records = append(records, knowledge.SeedRecord{Content: text, Embedding: embedding})
	}

	inserted, err := a.Knowledge.InsertSeed(ctx, records)
	if err != nil {
		return fmt.Errorf("inserting seed records: %w", err)
	}

	logger.Info("seeding complete",
		"collection", a.Knowledge.Collection(),
		"inserted", inserted,
	)
	fmt.Printf("Seeded %d records into %s\n", inserted, a.Knowledge.Collection())
	return nil
}
