package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PowerToDB converts a power matrix to decibels relative to ref:
// 10*log10(max(amin, S)) - 10*log10(max(amin, ref)). When topDB is positive
// the result is floored at its own maximum minus topDB.
func PowerToDB(s mat.Matrix, ref, amin, topDB float64) *mat.Dense {
	refDB := 10 * math.Log10(math.Max(amin, ref))

	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return 10*math.Log10(math.Max(amin, v)) - refDB
	}, s)

	if topDB > 0 {
		floor := mat.Max(&out) - topDB
		raw := out.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			for j, v := range row {
				row[j] = math.Max(v, floor)
			}
		}
	}
	return &out
}
