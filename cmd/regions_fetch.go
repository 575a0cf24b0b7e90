package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/atlas-cli/internal/regions"
)

var regionsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract a boundary archive",
	Long:  "Downloads the cartographic boundary zip for a geography level and vintage, extracts it, and prints the shapefile path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rawURL, _ := cmd.Flags().GetString("url")
		level, _ := cmd.Flags().GetString("level")
		year, _ := cmd.Flags().GetInt("year")
		dest, _ := cmd.Flags().GetString("dest")

		if level == "" {
			level = cfg.Regions.Level
		}
		if year == 0 {
			year = cfg.Census.Year
		}
		if dest == "" {
			dest = cfg.Regions.TempDir
		}

		if rawURL == "" {
			if level != "state" && level != "county" {
				return eris.Errorf("unsupported level: %s", level)
			}
			rawURL = regions.BoundaryURL(level, year)
		}

		shpPath, err := regions.Fetch(ctx, nil, rawURL, dest)
		if err != nil {
			return eris.Wrap(err, "regions fetch")
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	regionsFetchCmd.Flags().String("url", "", "boundary archive URL (default built from level and year)")
	regionsFetchCmd.Flags().String("level", "", "geography level: state or county (default from config)")
	regionsFetchCmd.Flags().Int("year", 0, "boundary vintage year (default from config)")
	regionsFetchCmd.Flags().String("dest", "", "destination directory (default from config)")
	regionsCmd.AddCommand(regionsFetchCmd)
}
