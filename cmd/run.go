package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/export"
	"github.com/sells-group/atlas-cli/internal/job"
	"github.com/sells-group/atlas-cli/internal/regions"
	"github.com/sells-group/atlas-cli/internal/sightings"
	"github.com/sells-group/atlas-cli/internal/store"
	"github.com/sells-group/atlas-cli/pkg/census"
)

var (
	runJobFile       string
	runSightings     string
	runBoundaries    string
	runBoundariesURL string
	runLevel         string
	runYear          int
	runVariable      string
	runSkipCensus    bool
	runOut           string
	runWorkers       int
	runDryRun        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify sightings into a bivariate choropleth",
	Long:  "Loads a sightings CSV, joins each report to its containing boundary region, attaches Census demographics, bins counts and rates into tertiles, and writes the classified map outputs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		j, err := buildRunJob(cmd)
		if err != nil {
			return err
		}

		var st store.Store
		if !runDryRun {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		out, err := executeJob(ctx, st, j)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// buildRunJob resolves the effective job: job file if given, otherwise
// config values, with explicit flags overriding either.
func buildRunJob(cmd *cobra.Command) (*job.Job, error) {
	j := &job.Job{}
	if runJobFile != "" {
		loaded, err := job.Load(runJobFile)
		if err != nil {
			return nil, err
		}
		j = loaded
	} else {
		j.Sightings.Path = cfg.Sightings.Path
		j.Sightings.Country = cfg.Sightings.Country
		j.Sightings.Encoding = cfg.Sightings.Encoding
		j.Regions.URL = cfg.Regions.ShapefileURL
		j.Regions.Level = cfg.Regions.Level
		j.Regions.Year = cfg.Census.Year
		j.Regions.CacheDir = cfg.Regions.TempDir
		j.Regions.IDField = cfg.Regions.IDField
		j.Regions.NameField = cfg.Regions.NameField
		j.Regions.AreaField = cfg.Regions.AreaField
		j.Census.Dataset = cfg.Census.Dataset
		j.Census.Variable = cfg.Census.Variable
		j.Census.Year = cfg.Census.Year
		j.Census.APIKey = cfg.Census.Key
		j.Workers = cfg.Classify.Workers
		j.Outputs.Dir = cfg.Export.Dir
	}

	flags := cmd.Flags()
	if flags.Changed("sightings") {
		j.Sightings.Path = runSightings
	}
	if flags.Changed("boundaries") {
		j.Regions.Path = runBoundaries
	}
	if flags.Changed("boundaries-url") {
		j.Regions.URL = runBoundariesURL
	}
	if flags.Changed("level") {
		j.Regions.Level = runLevel
	}
	if flags.Changed("year") {
		j.Regions.Year = runYear
		j.Census.Year = runYear
	}
	if flags.Changed("variable") {
		j.Census.Variable = runVariable
	}
	if flags.Changed("skip-census") {
		j.Census.Skip = runSkipCensus
	}
	if flags.Changed("out") {
		j.Outputs.Dir = runOut
	}
	if flags.Changed("workers") {
		j.Workers = runWorkers
	}

	j.ApplyDefaults()
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// runOutput is the JSON summary printed after a run.
type runOutput struct {
	RunID   string            `json:"run_id,omitempty"`
	Status  store.RunStatus   `json:"status"`
	Summary *store.RunSummary `json:"summary"`
	Files   []string          `json:"files,omitempty"`
}

// executeJob runs the full pipeline for one job. A nil store skips run
// bookkeeping (dry runs still produce the output files).
func executeJob(ctx context.Context, st store.Store, j *job.Job) (*runOutput, error) {
	start := time.Now()

	reports, stats, err := sightings.LoadFile(ctx, j.Sightings.Path, sightings.Options{
		Country:  j.Sightings.Country,
		Encoding: j.Sightings.Encoding,
		YearFrom: j.Sightings.YearFrom,
		YearTo:   j.Sightings.YearTo,
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("sightings loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("bad_coords", stats.BadCoords),
	)
	points := sightings.PointEvents(reports)

	boundaryPath, boundaryURL, err := resolveBoundaries(ctx, j)
	if err != nil {
		return nil, err
	}

	regs, err := regions.Load(boundaryPath, regions.Options{
		IDField:          j.Regions.IDField,
		NameField:        j.Regions.NameField,
		AreaField:        j.Regions.AreaField,
		DemographicField: j.Regions.DemographicField,
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("regions loaded", zap.Int("regions", len(regs)), zap.String("path", boundaryPath))

	if !j.Census.Skip && j.Regions.DemographicField == "" {
		regs, err = attachCensus(ctx, j, regs)
		if err != nil {
			return nil, err
		}
	}

	var run *store.Run
	if st != nil {
		run, err = st.CreateRun(ctx, store.RunParams{
			SightingsPath: j.Sightings.Path,
			BoundaryPath:  j.Regions.Path,
			BoundaryURL:   boundaryURL,
			Level:         j.Regions.Level,
			Year:          j.Regions.Year,
			Variable:      j.Census.Variable,
			Workers:       j.Workers,
		})
		if err != nil {
			return nil, err
		}
		if err := st.StartRun(ctx, run.ID); err != nil {
			return nil, err
		}
	}

	res, err := choropleth.Classify(ctx, points, regs, choropleth.Options{Workers: j.Workers})
	if err != nil {
		if run != nil {
			if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				zap.L().Error("mark run failed", zap.String("run_id", run.ID), zap.Error(ferr))
			}
		}
		return nil, err
	}

	summary := store.SummaryFromResult(res, time.Since(start))
	if run != nil {
		if err := st.SaveResults(ctx, run.ID, res.Regions); err != nil {
			return nil, err
		}
		if err := st.CompleteRun(ctx, run.ID, summary); err != nil {
			return nil, err
		}
	}

	files, err := writeOutputs(j, regs, res)
	if err != nil {
		return nil, err
	}

	out := &runOutput{
		Status:  store.RunStatusComplete,
		Summary: summary,
		Files:   files,
	}
	if run != nil {
		out.RunID = run.ID
	}
	return out, nil
}

// resolveBoundaries returns a local boundary file path, downloading the
// archive first when the job names a URL or level/year instead of a path.
func resolveBoundaries(ctx context.Context, j *job.Job) (path, url string, err error) {
	if j.Regions.Path != "" {
		return j.Regions.Path, "", nil
	}
	url = j.Regions.URL
	if url == "" {
		url = regions.BoundaryURL(j.Regions.Level, j.Regions.Year)
	}
	path, err = regions.Fetch(ctx, nil, url, j.Regions.CacheDir)
	if err != nil {
		return "", "", err
	}
	return path, url, nil
}

func attachCensus(ctx context.Context, j *job.Job, regs []choropleth.Region) ([]choropleth.Region, error) {
	opts := []census.Option{census.WithAPIKey(j.Census.APIKey)}
	if cfg != nil && cfg.Census.RPS > 0 {
		opts = append(opts, census.WithRateLimit(cfg.Census.RPS))
	}
	client := census.NewClient(opts...)

	values, err := client.Demographics(ctx, census.Request{
		Year:     j.Census.Year,
		Dataset:  j.Census.Dataset,
		Variable: j.Census.Variable,
		Level:    j.Regions.Level,
	})
	if err != nil {
		return nil, err
	}

	attached, missing := regions.AttachDemographics(regs, values)
	if len(missing) > 0 {
		zap.L().Warn("regions without demographics dropped",
			zap.Int("missing", len(missing)),
			zap.Strings("region_ids", missing),
		)
	}
	return attached, nil
}

func writeOutputs(j *job.Job, regs []choropleth.Region, res *choropleth.Result) ([]string, error) {
	if err := os.MkdirAll(j.Outputs.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create output dir %s", j.Outputs.Dir)
	}

	geojsonPath := filepath.Join(j.Outputs.Dir, j.Outputs.GeoJSON)
	if err := export.ExportGeoJSON(regs, res.Regions, geojsonPath); err != nil {
		return nil, err
	}
	legendPath := filepath.Join(j.Outputs.Dir, j.Outputs.Legend)
	if err := export.ExportLegend(legendPath); err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(j.Outputs.Dir, j.Outputs.XLSX)
	if err := export.ExportXLSX(res, xlsxPath); err != nil {
		return nil, err
	}
	return []string{geojsonPath, legendPath, xlsxPath}, nil
}

func init() {
	runCmd.Flags().StringVar(&runJobFile, "job", "", "YAML job file describing the run")
	runCmd.Flags().StringVar(&runSightings, "sightings", "", "sightings CSV path")
	runCmd.Flags().StringVar(&runBoundaries, "boundaries", "", "local boundary shapefile or GeoJSON path")
	runCmd.Flags().StringVar(&runBoundariesURL, "boundaries-url", "", "boundary archive URL (overrides level/year)")
	runCmd.Flags().StringVar(&runLevel, "level", "", "geography level: state or county")
	runCmd.Flags().IntVar(&runYear, "year", 0, "boundary and ACS vintage year")
	runCmd.Flags().StringVar(&runVariable, "variable", "", "ACS demographic variable")
	runCmd.Flags().BoolVar(&runSkipCensus, "skip-census", false, "skip the Census API (rates need a demographic attribute in the boundary file)")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "join worker count (0 = GOMAXPROCS)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip run persistence, still write output files")
	rootCmd.AddCommand(runCmd)
}
