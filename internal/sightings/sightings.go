// Package sightings parses NUFORC sighting report exports into point events
// for spatial classification.
package sightings

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/fetcher"
)

// Report is one sighting row from the NUFORC export.
type Report struct {
	OccurredAt  time.Time
	City        string
	State       string
	Country     string
	Shape       string
	DurationSec float64
	Lat         float64
	Lon         float64
}

// Options configures parsing of a sightings export.
type Options struct {
	// Country keeps only rows matching this country code, e.g. "us".
	// Rows with an empty country field are kept either way; the spatial
	// join decides membership.
	Country string
	// Encoding names the source charset, e.g. "windows-1252". Empty means UTF-8.
	Encoding string
	// YearFrom and YearTo bound the sighting year, inclusive. Zero means
	// unbounded on that side. Rows whose timestamp failed to parse are kept.
	YearFrom int
	YearTo   int
}

// Stats summarizes a parse pass.
type Stats struct {
	Rows      int // data rows seen
	Parsed    int // reports produced
	Skipped   int // rows dropped by the country or year filters
	BadCoords int // reports kept with unparseable coordinates
}

// The export uses US-style timestamps, with 24:00 standing in for midnight
// at the end of the day.
const timestampLayout = "1/2/2006 15:04"

var requiredColumns = []string{"datetime", "latitude", "longitude"}

// LoadFile opens and parses a sightings export. Gzip compression is detected
// from the file contents, not the name.
func LoadFile(ctx context.Context, path string, opts Options) ([]Report, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sightings: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Load(ctx, f, opts)
}

// Load parses a sightings CSV stream. Rows with coordinates that fail to
// parse are kept with NaN coordinates so downstream accounting can count
// them; rows excluded by the country filter are dropped.
func Load(ctx context.Context, r io.Reader, opts Options) ([]Report, *Stats, error) {
	dec, err := decode(r, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	rowCh, errCh := fetcher.StreamCSV(ctx, dec, fetcher.CSVOptions{
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var colIdx map[string]int
	stats := &Stats{}
	var reports []Report

	for row := range rowCh {
		if colIdx == nil {
			colIdx = mapColumns(row)
			if missing := missingColumns(colIdx); len(missing) > 0 {
				for range rowCh { // unblock the parser
				}
				<-errCh
				return nil, nil, eris.Errorf("sightings: csv missing columns: %s", strings.Join(missing, ", "))
			}
			continue
		}

		stats.Rows++

		rep := Report{
			City:    getCol(row, colIdx, "city"),
			State:   strings.ToUpper(getCol(row, colIdx, "state")),
			Country: strings.ToLower(getCol(row, colIdx, "country")),
			Shape:   strings.ToLower(getCol(row, colIdx, "shape")),
		}

		if opts.Country != "" && rep.Country != "" && !strings.EqualFold(rep.Country, opts.Country) {
			stats.Skipped++
			continue
		}

		if ts, ok := parseTimestamp(getCol(row, colIdx, "datetime")); ok {
			rep.OccurredAt = ts
		}
		if !yearInRange(rep.OccurredAt, opts.YearFrom, opts.YearTo) {
			stats.Skipped++
			continue
		}
		if secs, ok := parseFloat(getCol(row, colIdx, "duration (seconds)")); ok {
			rep.DurationSec = secs
		}

		lat, latOK := parseCoord(getCol(row, colIdx, "latitude"), 90)
		lon, lonOK := parseCoord(getCol(row, colIdx, "longitude"), 180)
		if !latOK || !lonOK {
			stats.BadCoords++
		}
		rep.Lat = lat
		rep.Lon = lon

		reports = append(reports, rep)
		stats.Parsed++
	}

	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrap(err, "sightings: parse csv")
	}
	if colIdx == nil {
		return nil, nil, eris.New("sightings: empty csv")
	}

	zap.L().Info("sightings: loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("bad_coords", stats.BadCoords),
	)

	return reports, stats, nil
}

// PointEvents converts reports to classification inputs. IDs are positional.
func PointEvents(reports []Report) []choropleth.PointEvent {
	events := make([]choropleth.PointEvent, len(reports))
	for i, r := range reports {
		events[i] = choropleth.PointEvent{
			ID:  fmt.Sprintf("sighting-%06d", i+1),
			Lon: r.Lon,
			Lat: r.Lat,
		}
	}
	return events
}

// decode layers gzip and charset decoding over the raw stream as needed.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			return nil, eris.Wrap(gzErr, "sightings: gzip reader")
		}
		r = gz
	} else {
		r = br
	}

	if encoding == "" || strings.EqualFold(encoding, "utf-8") {
		return r, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "sightings: unknown encoding %q", encoding)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	rollover := false
	if strings.HasSuffix(s, " 24:00") {
		s = strings.TrimSuffix(s, " 24:00") + " 00:00"
		rollover = true
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	if rollover {
		t = t.Add(24 * time.Hour)
	}
	return t, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// yearInRange reports whether a timestamp falls inside the inclusive year
// bounds. Zero bounds are open; zero timestamps always pass.
func yearInRange(t time.Time, from, to int) bool {
	if t.IsZero() {
		return true
	}
	if from != 0 && t.Year() < from {
		return false
	}
	if to != 0 && t.Year() > to {
		return false
	}
	return true
}

// parseCoord parses a coordinate, returning NaN for empty, malformed, or
// out-of-range values.
func parseCoord(s string, limit float64) (float64, bool) {
	v, ok := parseFloat(s)
	if !ok || math.Abs(v) > limit {
		return math.NaN(), false
	}
	return v, true
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name from a CSV record, returning empty string if not found.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func missingColumns(colIdx map[string]int) []string {
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := colIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
