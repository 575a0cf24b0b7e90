package choropleth

import (
	"regexp"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestPaletteColor_CoversAllClasses(t *testing.T) {
	seen := map[Color]BivariateClass{}
	for _, class := range Classes() {
		color, err := PaletteColor(class)
		require.NoError(t, err)
		assert.Regexp(t, hexColor, string(color))

		prev, dup := seen[color]
		require.False(t, dup, "color %s assigned to both %s and %s", color, prev, class)
		seen[color] = class
	}
	assert.Len(t, seen, 9)
}

func TestPaletteColor_Corners(t *testing.T) {
	tests := []struct {
		class BivariateClass
		want  Color
	}{
		{"1-1", "#CABED0"},
		{"3-3", "#3F2949"},
		{"3-1", "#AE3A4E"},
		{"1-3", "#4885C1"},
	}

	for _, tt := range tests {
		got, err := PaletteColor(tt.class)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPaletteColor_UnknownClass(t *testing.T) {
	for _, class := range []BivariateClass{"4-1", "0-2", "", "2-4", "high-low"} {
		_, err := PaletteColor(class)
		require.Error(t, err, "class %q", class)
		assert.True(t, eris.Is(err, ErrUnknownClass), "class %q", class)
	}
}

func TestLegend_Layout(t *testing.T) {
	legend := Legend()
	require.Len(t, legend, 9)

	// Cells follow canonical class order with row 0 on top (rate 3) and
	// col 0 on the left (count 1).
	for i, cell := range legend {
		assert.Equal(t, Classes()[i], cell.Class, "cell %d", i)

		wantColor, err := PaletteColor(cell.Class)
		require.NoError(t, err)
		assert.Equal(t, wantColor, cell.Color, "cell %d", i)

		assert.Equal(t, i/3, cell.Col, "cell %d", i)
		assert.Equal(t, i%3, cell.Row, "cell %d", i)
	}
}

func TestLegend_CornerCells(t *testing.T) {
	legend := Legend()

	byClass := map[BivariateClass]LegendCell{}
	for _, cell := range legend {
		byClass[cell.Class] = cell
	}

	assert.Equal(t, 0, byClass["3-1"].Row, "high rate on top")
	assert.Equal(t, 0, byClass["3-1"].Col, "low count on the left")
	assert.Equal(t, 2, byClass["1-3"].Row, "low rate on the bottom")
	assert.Equal(t, 2, byClass["1-3"].Col, "high count on the right")
	assert.Equal(t, 0, byClass["3-3"].Row)
	assert.Equal(t, 2, byClass["3-3"].Col)
}
