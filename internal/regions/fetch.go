package regions

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/fetcher"
)

// BoundaryURL returns the Census cartographic boundary archive URL for a
// geography level ("state" or "county") and vintage year.
func BoundaryURL(level string, year int) string {
	return fmt.Sprintf("https://www2.census.gov/geo/tiger/GENZ%d/shp/cb_%d_us_%s_500k.zip", year, year, level)
}

// Fetch downloads a zipped boundary archive into destDir, extracts it, and
// returns the path to the .shp file. A nil fetcher picks one by URL scheme.
func Fetch(ctx context.Context, f fetcher.Fetcher, rawURL, destDir string) (string, error) {
	if f == nil {
		f = fetcher.ForURL(rawURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "regions: create dest dir")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "regions: parse url %s", rawURL)
	}
	zipName := filepath.Base(u.Path)
	if zipName == "." || zipName == "/" {
		zipName = "boundaries.zip"
	}
	zipPath := filepath.Join(destDir, zipName)

	log := zap.L().With(
		zap.String("component", "regions.fetch"),
		zap.String("url", rawURL),
	)
	log.Info("downloading boundary archive")

	if _, err := f.DownloadToFile(ctx, rawURL, zipPath); err != nil {
		return "", eris.Wrap(err, "regions: download boundaries")
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "regions: create extract dir")
	}

	paths, err := fetcher.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return "", eris.Wrap(err, "regions: extract boundaries")
	}

	shpPath, err := fetcher.FindByExt(paths, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "regions: locate shapefile")
	}

	log.Info("boundary archive ready", zap.String("shapefile", shpPath))
	return shpPath, nil
}
