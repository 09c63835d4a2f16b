package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage raw usage sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the usage sources available with the current config",
	RunE:  runSourcesList,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := initSources(cmd.Context(), cfg, "")
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SOURCE\tDEFAULT\n")
	for _, name := range registry.List() {
		def := ""
		if name == cfg.Source.Default {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, def)
	}
	fmt.Fprintf(w, "file\t(via ingest --file)\n")
	w.Flush()

	return nil
}
