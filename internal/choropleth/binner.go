package choropleth

import (
	"math"
	"sort"
)

// TertileBinning is the result of binning one dimension.
type TertileBinning struct {
	// Classes holds the 1..3 class for each input value, positionally.
	Classes []ClassIndex
	// LowerCut and UpperCut are the 1/3 and 2/3 quantiles of the input.
	LowerCut float64
	UpperCut float64
	// Distinct counts distinct input values.
	Distinct int
}

// Degenerate reports whether the input had fewer distinct values than
// classes, meaning the three tertiles cannot all be populated.
func (b TertileBinning) Degenerate() bool {
	return b.Distinct < 3
}

// Tertiles bins values into classes 1 (low), 2 (mid), 3 (high) using the 1/3
// and 2/3 quantiles as cut points. A value equal to a cut point goes to the
// LOWER class, so ties never promote a value into a higher class. Degenerate
// inputs still classify: all-equal values all land in class 1. The input
// slice is not modified.
func Tertiles(values []float64) TertileBinning {
	b := TertileBinning{Classes: make([]ClassIndex, len(values))}
	if len(values) == 0 {
		return b
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	b.LowerCut = quantile(sorted, 1.0/3.0)
	b.UpperCut = quantile(sorted, 2.0/3.0)
	b.Distinct = countDistinct(sorted)

	for i, v := range values {
		switch {
		case v <= b.LowerCut:
			b.Classes[i] = 1
		case v <= b.UpperCut:
			b.Classes[i] = 2
		default:
			b.Classes[i] = 3
		}
	}
	return b
}

// quantile returns the q-quantile of sorted values, interpolating linearly
// between adjacent order statistics.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}
