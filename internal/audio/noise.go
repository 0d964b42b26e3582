package audio

import (
	"math/rand"
	"time"
)

// DefaultEpsilon is the noise magnitude used by --simulate.
const DefaultEpsilon = 0.01

// InjectNoise returns a new waveform where every sample is shifted by
// +epsilon or -epsilon, the sign drawn from a standard normal, then clipped
// to [-1, 1]. A nil rng is seeded from the clock.
func InjectNoise(w *Waveform, epsilon float64, rng *rand.Rand) *Waveform {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	out := make([]float64, len(w.Samples))
	for i, v := range w.Samples {
		n := epsilon
		if rng.NormFloat64() < 0 {
			n = -epsilon
		}
		out[i] = clip(v + n)
	}
	return &Waveform{Samples: out, SampleRate: w.SampleRate}
}

func clip(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
