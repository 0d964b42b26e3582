package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/zudsniper/forensic-audio-analyzer/internal/media"
)

var (
	// ErrEmptyAudio is returned when a file decodes to zero samples.
	ErrEmptyAudio = errors.New("audio: no samples decoded")
	// ErrUnsupportedFormat is returned when neither beep nor ffmpeg can read the input.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
)

// LoadOptions controls the ffmpeg fallback used for formats beep cannot decode.
type LoadOptions struct {
	FFmpegBin string
	TmpDir    string
}

func (o LoadOptions) ffmpeg() string {
	if o.FFmpegBin == "" {
		return "ffmpeg"
	}
	return o.FFmpegBin
}

type decoder func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

func decodeWAV(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(rc) }

// headerError marks a file whose header the in-process decoder rejected,
// as opposed to a file that could not be opened or read.
type headerError struct{ err error }

func (e *headerError) Error() string { return e.err.Error() }
func (e *headerError) Unwrap() error { return e.err }

// Load decodes path into a mono waveform at its native sample rate.
// WAV and MP3 are decoded in-process; anything else, and WAV encodings beep
// does not handle (IEEE float, 32-bit PCM), go through ffmpeg first.
func Load(ctx context.Context, path string, opts LoadOptions) (*Waveform, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		w, err := decodeFile(path, decodeWAV, wavFullScale)
		var he *headerError
		if err == nil || !errors.As(err, &he) {
			return w, err
		}
		if !media.Available(opts.ffmpeg()) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return convertAndDecode(ctx, path, opts)
	case ".mp3":
		return decodeFile(path, mp3.Decode, nil)
	}

	if !media.Available(opts.ffmpeg()) {
		return nil, fmt.Errorf("%w: %q needs %s, which was not found", ErrUnsupportedFormat, ext, opts.ffmpeg())
	}
	return convertAndDecode(ctx, path, opts)
}

func convertAndDecode(ctx context.Context, path string, opts LoadOptions) (*Waveform, error) {
	converted, err := media.ConvertToWAV(ctx, opts.ffmpeg(), path, opts.TmpDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(converted)
	return decodeFile(converted, decodeWAV, wavFullScale)
}

// wavFullScale undoes beep's PCM normalization, which divides by 2^bits-1
// instead of 2^(bits-1), so an int16 of 16384 reads as 0.5.
func wavFullScale(precision int) func(float64) float64 {
	switch precision {
	case 1:
		// beep maps unsigned bytes to v/255*2-1
		return func(v float64) float64 { return (math.Round((v+1)*255/2) - 128) / 128 }
	case 2, 3:
		bits := 8 * precision
		full := float64(uint64(1)<<bits - 1)
		half := float64(uint64(1) << (bits - 1))
		return func(v float64) float64 { return math.Round(v*full) / half }
	default:
		return nil
	}
}

func decodeFile(path string, dec decoder, scale func(precision int) func(float64) float64) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, format, err := dec(f)
	if err != nil {
		f.Close()
		return nil, &headerError{fmt.Errorf("decode %s: %w", filepath.Base(path), err)}
	}
	defer s.Close()

	var fn func(float64) float64
	if scale != nil {
		fn = scale(format.Precision)
	}
	samples, err := drain(s, s.Len(), fn)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Waveform{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

// drain reads s to the end, averaging both channels after applying scale to
// each of them. A nil scale keeps the decoded values.
func drain(s beep.Streamer, hint int, scale func(float64) float64) ([]float64, error) {
	if hint < 0 {
		hint = 0
	}
	out := make([]float64, 0, hint)
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			l, r := frame[0], frame[1]
			if scale != nil {
				l, r = scale(l), scale(r)
			}
			out = append(out, (l+r)/2)
		}
		if !ok {
			break
		}
	}
	return out, s.Err()
}
