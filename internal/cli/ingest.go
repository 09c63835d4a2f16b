package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/pkg/ingest"
	"github.com/ogulcanaydogan/cloudsaver/pkg/sources"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, normalize and store daily costs",
	Long: `Fetch daily per-service costs from a source, normalize them and upsert
them into the store. Re-ingesting a day overwrites changed costs and never
creates duplicate rows.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("source", "s", "", "Source name: mock, costexplorer, file (default from config)")
	ingestCmd.Flags().IntP("days", "d", 0, "Number of full days before today to fetch (default from config)")
	ingestCmd.Flags().StringP("file", "f", "", "Replay a saved raw response (.json or .yaml); implies --source file")
	ingestCmd.Flags().String("save-raw", "", "Write the fetched raw response to this path")
	ingestCmd.Flags().Bool("dry-run", false, "Normalize and print without storing")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceName, _ := cmd.Flags().GetString("source")
	days, _ := cmd.Flags().GetInt("days")
	file, _ := cmd.Flags().GetString("file")
	saveRaw, _ := cmd.Flags().GetString("save-raw")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	switch {
	case file != "":
		sourceName = "file"
	case sourceName == "":
		sourceName = cfg.Source.Default
	}
	if days == 0 {
		days = cfg.Ingest.Days
	}

	window, err := sources.LastDays(time.Now(), days)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	pipeline, store, err := initPipeline(cmd.Context(), cfg, logger, file)
	if err != nil {
		return failed(logger, "ingest", err)
	}
	defer store.Close()

	result, err := pipeline.Run(cmd.Context(), ingest.Request{
		Source:  sourceName,
		Window:  window,
		DryRun:  dryRun,
		SaveRaw: saveRaw,
	})
	if err != nil {
		return failed(logger, "ingest", err)
	}

	if result.DryRun {
		fmt.Printf("Dry run, nothing stored:\n")
		printRecords(result.Records)
	}
	fmt.Printf("Source:   %s\n", result.Source)
	fmt.Printf("Window:   %s\n", result.Window)
	fmt.Printf("Periods:  %d\n", result.Periods)
	fmt.Printf("Records:  %d\n", len(result.Records))
	fmt.Printf("Written:  %d\n", result.Written)
	fmt.Printf("Total:    $%s\n", result.Total.StringFixed(2))

	return nil
}
