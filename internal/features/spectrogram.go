package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptySignal is returned for a waveform without samples.
var ErrEmptySignal = errors.New("features: empty signal")

// MelParams configures MelSpectrogram. A zero FMax means Nyquist.
type MelParams struct {
	NFFT      int
	HopLength int
	NMels     int
	FMin      float64
	FMax      float64
}

// DefaultMelParams returns the usual speech-analysis settings.
func DefaultMelParams() MelParams {
	return MelParams{NFFT: 2048, HopLength: 512, NMels: 128}
}

func (p MelParams) validate(sampleRate int) (MelParams, error) {
	if sampleRate <= 0 {
		return p, fmt.Errorf("features: sample rate must be positive, got %d", sampleRate)
	}
	if p.NFFT < 2 {
		return p, fmt.Errorf("features: n_fft must be at least 2, got %d", p.NFFT)
	}
	if p.HopLength <= 0 {
		return p, fmt.Errorf("features: hop length must be positive, got %d", p.HopLength)
	}
	if p.NMels <= 0 {
		return p, fmt.Errorf("features: n_mels must be positive, got %d", p.NMels)
	}
	nyquist := float64(sampleRate) / 2
	if p.FMax == 0 {
		p.FMax = nyquist
	}
	if p.FMin < 0 || p.FMin >= p.FMax || p.FMax > nyquist {
		return p, fmt.Errorf("features: invalid band [%g, %g] for sample rate %d", p.FMin, p.FMax, sampleRate)
	}
	return p, nil
}

// Spectrogram is a mel power spectrogram, one row per band, one column per frame.
type Spectrogram struct {
	Power      *mat.Dense
	SampleRate int
	HopLength  int
	FMin, FMax float64
}

// Dims returns the number of mel bands and frames.
func (s *Spectrogram) Dims() (bands, frames int) { return s.Power.Dims() }

// FrameTime returns the start time of frame i in seconds.
func (s *Spectrogram) FrameTime(i int) float64 {
	return float64(i*s.HopLength) / float64(s.SampleRate)
}

// BandCenters returns the center frequency of every mel band in Hz.
func (s *Spectrogram) BandCenters() []float64 {
	bands, _ := s.Dims()
	return melFrequencies(bands+2, s.FMin, s.FMax)[1 : bands+1]
}

// MelSpectrogram computes the mel power spectrogram of samples.
func MelSpectrogram(samples []float64, sampleRate int, p MelParams) (*Spectrogram, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	p, err := p.validate(sampleRate)
	if err != nil {
		return nil, err
	}

	power := powerSpectrogram(samples, p.NFFT, p.HopLength)
	bank := melFilterBank(sampleRate, p.NFFT, p.NMels, p.FMin, p.FMax)

	var mel mat.Dense
	mel.Mul(bank, power)
	return &Spectrogram{
		Power:      &mel,
		SampleRate: sampleRate,
		HopLength:  p.HopLength,
		FMin:       p.FMin,
		FMax:       p.FMax,
	}, nil
}
