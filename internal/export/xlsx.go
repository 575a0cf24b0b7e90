package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// regionColumns defines the ordered Regions sheet columns.
var regionColumns = []string{
	"Region ID",
	"Name",
	"Sightings",
	"Rate",
	"Count Class",
	"Rate Class",
	"Class",
	"Color",
}

// legendColumns defines the ordered Legend sheet columns.
var legendColumns = []string{
	"Class",
	"Color",
	"Row",
	"Col",
}

// ExportXLSX writes a workbook with Regions, Legend, and Diagnostics sheets.
func ExportXLSX(res *choropleth.Result, path string) error {
	f := xlsx.NewFile()

	if err := addRegionsSheet(f, res.Regions); err != nil {
		return err
	}
	if err := addLegendSheet(f, res.Legend); err != nil {
		return err
	}
	if err := addDiagnosticsSheet(f, res.Diagnostics); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func addRegionsSheet(f *xlsx.File, results []choropleth.RegionResult) error {
	sheet, err := f.AddSheet("Regions")
	if err != nil {
		return eris.Wrap(err, "export: add regions sheet")
	}

	header := sheet.AddRow()
	for _, col := range regionColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.RegionID)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetInt(r.Count)
		row.AddCell().SetFloat(r.Rate)
		row.AddCell().SetInt(int(r.CountClass))
		row.AddCell().SetInt(int(r.RateClass))
		row.AddCell().SetString(string(r.Class))
		row.AddCell().SetString(string(r.Color))
	}
	return nil
}

func addLegendSheet(f *xlsx.File, cells []choropleth.LegendCell) error {
	sheet, err := f.AddSheet("Legend")
	if err != nil {
		return eris.Wrap(err, "export: add legend sheet")
	}

	// Stored runs rebuild their Result without a legend; the grid is fixed.
	if len(cells) == 0 {
		cells = choropleth.Legend()
	}

	header := sheet.AddRow()
	for _, col := range legendColumns {
		header.AddCell().SetString(col)
	}

	for _, c := range cells {
		row := sheet.AddRow()
		row.AddCell().SetString(string(c.Class))
		row.AddCell().SetString(string(c.Color))
		row.AddCell().SetInt(c.Row)
		row.AddCell().SetInt(c.Col)
	}
	return nil
}

func addDiagnosticsSheet(f *xlsx.File, d choropleth.Diagnostics) error {
	sheet, err := f.AddSheet("Diagnostics")
	if err != nil {
		return eris.Wrap(err, "export: add diagnostics sheet")
	}

	num := func(key string, value int) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetInt(value)
	}
	str := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(value)
	}

	num("Total Points", d.TotalPoints)
	num("Matched Points", d.MatchedPoints)
	num("Unmatched Points", d.UnmatchedPoints)
	num("Invalid Points", d.InvalidPoints)
	str("Count Cuts", fmt.Sprintf("%g / %g", d.CountCuts[0], d.CountCuts[1]))
	str("Rate Cuts", fmt.Sprintf("%g / %g", d.RateCuts[0], d.RateCuts[1]))
	if len(d.DegenerateDims) > 0 {
		str("Degenerate Dimensions", strings.Join(d.DegenerateDims, ", "))
	}
	for _, s := range d.SkippedRegions {
		str("Skipped Region "+s.RegionID, s.Reason)
	}
	return nil
}
