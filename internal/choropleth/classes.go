package choropleth

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ClassIndex is a tertile class, 1 (low) to 3 (high).
type ClassIndex int

// BivariateClass labels one cell of the 3x3 grid as "{rate}-{count}", so
// "3-1" means highest rate tertile, lowest count tertile.
type BivariateClass string

// classGrid fixes the canonical enumeration: count class ascending column by
// column, rate class descending within each column. Legend cells follow this
// order exactly.
var classGrid = []struct {
	class BivariateClass
	rate  ClassIndex
	count ClassIndex
}{
	{"3-1", 3, 1}, {"2-1", 2, 1}, {"1-1", 1, 1},
	{"3-2", 3, 2}, {"2-2", 2, 2}, {"1-2", 1, 2},
	{"3-3", 3, 3}, {"2-3", 2, 3}, {"1-3", 1, 3},
}

// Combine builds the bivariate class label from per-dimension tertile classes.
func Combine(rate, count ClassIndex) (BivariateClass, error) {
	if rate < 1 || rate > 3 || count < 1 || count > 3 {
		return "", eris.Errorf("choropleth: class index out of range: rate=%d count=%d", rate, count)
	}
	return BivariateClass(fmt.Sprintf("%d-%d", rate, count)), nil
}

// Classes enumerates all nine class labels in canonical order.
func Classes() []BivariateClass {
	out := make([]BivariateClass, 0, len(classGrid))
	for _, g := range classGrid {
		out = append(out, g.class)
	}
	return out
}
