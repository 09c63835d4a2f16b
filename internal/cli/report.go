package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/ogulcanaydogan/cloudsaver/pkg/aggregate"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/report"
	"github.com/spf13/cobra"
)

const (
	// cliCaller identifies local CLI reads in query logs.
	cliCaller = "cli"

	defaultTop = 10
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "List the most recent stored cost records",
	RunE:  runCosts,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show total cost per service across all stored records",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(costsCmd)
	rootCmd.AddCommand(summaryCmd)

	costsCmd.Flags().IntP("limit", "n", 0, "Number of records to show (default from config)")
	summaryCmd.Flags().Int("top", defaultTop, "Only show the N most expensive services (0 = all)")
}

func runCosts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit == 0 {
		limit = cfg.Query.DefaultLimit
	}

	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return failed(logger, "query costs", err)
	}
	defer store.Close()

	records, err := report.NewService(store, logger).Recent(cmd.Context(), cliCaller, limit)
	if err != nil {
		return failed(logger, "query costs", err)
	}

	if len(records) == 0 {
		fmt.Println("No cost records stored. Run 'cloudsaver ingest' first.")
		return nil
	}
	printRecords(model.Records(records))
	return nil
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")

	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return failed(logger, "summarize costs", err)
	}
	defer store.Close()

	summary, err := report.NewService(store, logger).Summary(cmd.Context(), cliCaller)
	if err != nil {
		return failed(logger, "summarize costs", err)
	}

	if summary.Records == 0 {
		fmt.Println("No cost records stored. Run 'cloudsaver ingest' first.")
		return nil
	}
	printSummary(os.Stdout, summary, top)
	return nil
}

func printRecords(records []model.CostRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tSERVICE\tCOST\n")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t$%s\n", r.Day(), r.Service, r.Cost.StringFixed(2))
	}
	w.Flush()
}

func printSummary(out io.Writer, summary *report.Summary, top int) {
	bold := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Fprintf(out, "=== Cost Summary (%d records) ===\n\n", summary.Records)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SERVICE\tTOTAL\n")
	for _, st := range aggregate.Top(summary.Services, top) {
		fmt.Fprintf(w, "%s\t$%s\n", st.Service, st.TotalCost.StringFixed(2))
	}
	fmt.Fprintf(w, "%s\t%s\n", bold("TOTAL"), bold("$"+summary.Total.StringFixed(2)))
	w.Flush()
}
