package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// periodicHann matches the FFT-oriented (periodic) Hann window.
func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// frameCount is the number of centered frames for a signal of n samples.
func frameCount(n, hop int) int { return 1 + n/hop }

// powerSpectrogram returns |STFT|^2 as a (nfft/2+1) x frames matrix.
// Frames are centered: the signal is zero padded by nfft/2 on both sides.
func powerSpectrogram(samples []float64, nfft, hop int) *mat.Dense {
	pad := nfft / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	nFrames := frameCount(len(samples), hop)
	nBins := nfft/2 + 1
	win := periodicHann(nfft)
	fft := fourier.NewFFT(nfft)

	frame := make([]float64, nfft)
	coeffs := make([]complex128, nBins)
	out := mat.NewDense(nBins, nFrames, nil)
	for t := 0; t < nFrames; t++ {
		start := t * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			out.Set(k, t, real(c)*real(c)+imag(c)*imag(c))
		}
	}
	return out
}
