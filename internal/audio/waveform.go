package audio

import "github.com/gopxl/beep"

// Waveform is a mono signal with samples nominally in [-1, 1].
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples.
func (w *Waveform) Len() int { return len(w.Samples) }

// Duration returns the length of the signal in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Clone returns a deep copy.
func (w *Waveform) Clone() *Waveform {
	s := make([]float64, len(w.Samples))
	copy(s, w.Samples)
	return &Waveform{Samples: s, SampleRate: w.SampleRate}
}

// streamer exposes the samples as a beep stream, duplicating the mono channel.
func (w *Waveform) streamer() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(w.Samples) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(w.Samples) {
			v := w.Samples[pos]
			buf[n] = [2]float64{v, v}
			n++
			pos++
		}
		return n, true
	})
}
