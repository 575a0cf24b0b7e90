package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the nine bivariate classes",
	Long:  "Prints the fixed 3x3 class grid with its colors and legend positions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cells := choropleth.Legend()
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cells)
		}

		formatLegend(os.Stdout, cells)
		return nil
	},
}

func init() {
	legendCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(legendCmd)
}

// formatLegend writes the legend cells as a table to w.
func formatLegend(out io.Writer, cells []choropleth.LegendCell) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLASS\tCOLOR\tROW\tCOL")
	for _, c := range cells {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", c.Class, c.Color, c.Row, c.Col)
	}
	_ = w.Flush()
}
