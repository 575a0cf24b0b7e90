package choropleth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		rate, count ClassIndex
		want        BivariateClass
	}{
		{1, 1, "1-1"},
		{3, 1, "3-1"},
		{1, 3, "1-3"},
		{2, 2, "2-2"},
		{3, 3, "3-3"},
	}

	for _, tt := range tests {
		got, err := Combine(tt.rate, tt.count)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCombine_OutOfRange(t *testing.T) {
	for _, pair := range [][2]ClassIndex{{0, 1}, {4, 1}, {1, 0}, {1, 4}, {-1, 2}} {
		_, err := Combine(pair[0], pair[1])
		assert.Error(t, err, "rate=%d count=%d", pair[0], pair[1])
	}
}

func TestClasses_CanonicalOrder(t *testing.T) {
	want := []BivariateClass{
		"3-1", "2-1", "1-1",
		"3-2", "2-2", "1-2",
		"3-3", "2-3", "1-3",
	}
	assert.Equal(t, want, Classes())
}

func TestClasses_CoversGrid(t *testing.T) {
	seen := map[BivariateClass]bool{}
	for _, c := range Classes() {
		seen[c] = true
	}
	require.Len(t, seen, 9, "nine distinct classes")

	for rate := ClassIndex(1); rate <= 3; rate++ {
		for count := ClassIndex(1); count <= 3; count++ {
			class, err := Combine(rate, count)
			require.NoError(t, err)
			assert.True(t, seen[class], "missing %s", class)
		}
	}
}
