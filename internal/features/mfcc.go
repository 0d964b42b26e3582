package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultMFCC is the number of coefficients kept per frame.
const DefaultMFCC = 13

// MFCC returns an n x frames matrix of cepstral coefficients computed from
// the log-mel energies of s.
func MFCC(s *Spectrogram, n int) (*mat.Dense, error) {
	logMel := PowerToDB(s.Power, 1.0, 1e-10, 80)
	bands, _ := logMel.Dims()
	if n <= 0 || n > bands {
		return nil, fmt.Errorf("features: n_mfcc must be in [1, %d], got %d", bands, n)
	}

	var out mat.Dense
	out.Mul(dctBasis(n, bands), logMel)
	return &out, nil
}

// dctBasis returns the first n rows of the orthonormal DCT-II matrix of the given size.
func dctBasis(n, size int) *mat.Dense {
	b := mat.NewDense(n, size, nil)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1 / float64(size))
		}
		for j := 0; j < size; j++ {
			b.Set(k, j, scale*math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*float64(size))))
		}
	}
	return b
}

// MeanOverFrames averages every row of m across its columns.
func MeanOverFrames(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, m)
		out[i] = stat.Mean(row, nil)
	}
	return out
}

// Summary returns the DefaultMFCC coefficients of s averaged over frames.
func Summary(s *Spectrogram) ([]float64, error) {
	m, err := MFCC(s, DefaultMFCC)
	if err != nil {
		return nil, err
	}
	return MeanOverFrames(m), nil
}
