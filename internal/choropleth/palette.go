package choropleth

import "github.com/rotisserie/eris"

// Color is an RGB hex triple like "#3F2949".
type Color string

// ErrUnknownClass is returned when a class label has no palette entry. Colors
// are never defaulted or remapped, so callers must treat this as fatal.
var ErrUnknownClass = eris.New("choropleth: unknown bivariate class")

// palette is the fixed purple/blue bivariate scheme. Dark corner 3-3 marks
// high rate and high count, pale corner 1-1 marks low on both. One distinct
// color per class.
var palette = map[BivariateClass]Color{
	"3-1": "#AE3A4E", "3-2": "#77324C", "3-3": "#3F2949",
	"2-1": "#BC7C8F", "2-2": "#806A8A", "2-3": "#435786",
	"1-1": "#CABED0", "1-2": "#89A1C8", "1-3": "#4885C1",
}

// PaletteColor resolves a class label to its fill color.
func PaletteColor(class BivariateClass) (Color, error) {
	color, ok := palette[class]
	if !ok {
		return "", eris.Wrapf(ErrUnknownClass, "no palette entry for %q", string(class))
	}
	return color, nil
}

// LegendCell positions one class in the 3x3 legend grid. Row 0 is the top row
// (highest rate class); Col 0 is the leftmost column (lowest count class).
type LegendCell struct {
	Class BivariateClass `json:"class"`
	Color Color          `json:"color"`
	Row   int            `json:"row"`
	Col   int            `json:"col"`
}

// Legend returns the nine legend cells in canonical class order.
func Legend() []LegendCell {
	cells := make([]LegendCell, 0, len(classGrid))
	for _, g := range classGrid {
		cells = append(cells, LegendCell{
			Class: g.class,
			Color: palette[g.class],
			Row:   int(3 - g.rate),
			Col:   int(g.count - 1),
		})
	}
	return cells
}
