package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/export"
	"github.com/sells-group/atlas-cli/internal/regions"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export stored run results",
	Long:  "Rebuilds the xlsx workbook and legend from a stored run. GeoJSON needs the boundary file the run was classified against, passed via --boundaries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		results, err := st.GetResults(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if len(results) == 0 {
			return eris.Errorf("run %s has no stored results", run.ID)
		}

		outDir, _ := cmd.Flags().GetString("out")
		boundaries, _ := cmd.Flags().GetString("boundaries")

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", outDir)
		}

		res := &choropleth.Result{
			Regions:     results,
			Legend:      choropleth.Legend(),
			Diagnostics: run.Summary.Diagnostics(),
		}

		files := make([]string, 0, 3)

		xlsxPath := filepath.Join(outDir, "choropleth.xlsx")
		if err := export.ExportXLSX(res, xlsxPath); err != nil {
			return err
		}
		files = append(files, xlsxPath)

		legendPath := filepath.Join(outDir, "legend.json")
		if err := export.ExportLegend(legendPath); err != nil {
			return err
		}
		files = append(files, legendPath)

		if boundaries != "" {
			regs, err := regions.Load(boundaries, regions.Options{
				IDField:   cfg.Regions.IDField,
				NameField: cfg.Regions.NameField,
				AreaField: cfg.Regions.AreaField,
			})
			if err != nil {
				return err
			}
			geojsonPath := filepath.Join(outDir, "choropleth.geojson")
			if err := export.ExportGeoJSON(regs, results, geojsonPath); err != nil {
				return err
			}
			files = append(files, geojsonPath)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id": run.ID,
			"files":  files,
		})
	},
}

func init() {
	exportCmd.Flags().String("out", "out", "output directory")
	exportCmd.Flags().String("boundaries", "", "boundary file for GeoJSON geometry (omit to skip GeoJSON)")
	rootCmd.AddCommand(exportCmd)
}
