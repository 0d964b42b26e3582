package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts a frequency to the Slaney mel scale: linear below 1 kHz,
// logarithmic above.
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFrequencies returns n frequencies evenly spaced on the mel scale.
func melFrequencies(n int, fmin, fmax float64) []float64 {
	lo, hi := HzToMel(fmin), HzToMel(fmax)
	out := make([]float64, n)
	for i := range out {
		m := lo
		if n > 1 {
			m = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = MelToHz(m)
	}
	return out
}

// melFilterBank builds the nMels x (nfft/2+1) triangular filter matrix with
// Slaney normalization, so each filter has roughly unit area in Hz.
func melFilterBank(sampleRate, nfft, nMels int, fmin, fmax float64) *mat.Dense {
	nBins := nfft/2 + 1
	fftFreqs := make([]float64, nBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}
	melF := melFrequencies(nMels+2, fmin, fmax)

	weights := mat.NewDense(nMels, nBins, nil)
	for i := 0; i < nMels; i++ {
		lowerWidth := melF[i+1] - melF[i]
		upperWidth := melF[i+2] - melF[i+1]
		enorm := 2 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / lowerWidth
			upper := (melF[i+2] - f) / upperWidth
			if w := math.Min(lower, upper); w > 0 {
				weights.Set(i, k, w*enorm)
			}
		}
	}
	return weights
}
