package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zudsniper/forensic-audio-analyzer/internal/audio"
	"github.com/zudsniper/forensic-audio-analyzer/internal/console"
	"github.com/zudsniper/forensic-audio-analyzer/internal/metrics"
	"github.com/zudsniper/forensic-audio-analyzer/internal/report"
	"github.com/zudsniper/forensic-audio-analyzer/internal/transcribe"
)

// fakeBackend reads the waveform it is given, so tests can see what the
// transcriber saw, and then answers with text or err.
type fakeBackend struct {
	text  string
	err   error
	calls int
	seen  *audio.Waveform
	path  string
}

func (f *fakeBackend) Transcribe(ctx context.Context, audioPath string) (transcribe.Transcript, error) {
	f.calls++
	f.path = audioPath
	w, err := audio.Load(ctx, audioPath, audio.LoadOptions{})
	if err != nil {
		return transcribe.Transcript{}, err
	}
	f.seen = w
	if f.err != nil {
		return transcribe.Transcript{}, f.err
	}
	return transcribe.Transcript{Segments: []transcribe.Segment{{Text: f.text}}}, nil
}

func sineWAV(t *testing.T, dir string, seconds float64, sr int) string {
	t.Helper()
	n := int(seconds * float64(sr))
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sr))
	}
	p := filepath.Join(dir, "input.wav")
	require.NoError(t, audio.WriteWAV(p, &audio.Waveform{Samples: s, SampleRate: sr}))
	return p
}

func readReport(t *testing.T, res *Result) string {
	t.Helper()
	b, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	return string(b)
}

func TestRunFiveSecondClip(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 5, 16000)
	out := t.TempDir()
	be := &fakeBackend{text: " hello forensic world"}
	var stdout bytes.Buffer
	m := metrics.New()

	res, err := New(be, console.New(&stdout, false), nil, m).Run(context.Background(), Options{
		InputPath: in, OutputDir: out, Seed: 42, BackendName: "fake",
	})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, res.Duration, 1e-9)
	assert.Equal(t, 16000, res.SampleRate)
	assert.Equal(t, 1, be.calls)
	assert.Equal(t, filepath.Join(out, TempAudioName), be.path)
	assert.NoFileExists(t, filepath.Join(out, TempAudioName))
	assert.FileExists(t, res.SpectrogramPath)

	text := readReport(t, res)
	assert.Contains(t, text, "Audio File: "+in+"\n")
	assert.Contains(t, text, "Duration: 5.00 seconds\n")
	assert.Contains(t, text, "Sample Rate: 16000 Hz\n")
	assert.Contains(t, text, "Adversarial Simulation: No\n")
	if res.Manipulated() {
		assert.Contains(t, text, "Manipulation Detected: Yes\n")
	} else {
		assert.Contains(t, text, "Manipulation Detected: No\n")
	}
	assert.True(t, strings.HasSuffix(text, "=== Transcription ===\n hello forensic world"))

	lines := stdout.String()
	assert.Contains(t, lines, "[+] Loading audio...")
	assert.Contains(t, lines, "[i] Audio Duration: 5.00 seconds | Sample Rate: 16000 Hz")
	assert.Contains(t, lines, "[...] Transcribing...")
	assert.Contains(t, lines, "[✓] Temporary audio file removed.")
	assert.NotContains(t, lines, "adversarial noise")

	assert.Equal(t, 16000.0, testutil.ToFloat64(m.AudioSampleRate))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SimulationApplied))
}

func TestRunSimulateWithinEpsilon(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 1, 8000)
	orig, err := audio.Load(context.Background(), in, audio.LoadOptions{})
	require.NoError(t, err)

	const eps = 0.01
	be := &fakeBackend{text: "ok"}
	res, err := New(be, nil, nil, nil).Run(context.Background(), Options{
		InputPath: in, OutputDir: t.TempDir(), Simulate: true, Epsilon: eps, Seed: 7,
	})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Contains(t, readReport(t, res), "Adversarial Simulation: Yes\n")

	require.NotNil(t, be.seen)
	require.Equal(t, orig.Len(), be.seen.Len())
	var total float64
	for i, v := range be.seen.Samples {
		d := math.Abs(v - orig.Samples[i])
		// 16-bit requantization adds at most a couple of LSBs
		require.LessOrEqual(t, d, eps+1e-3, "sample %d", i)
		total += d
	}
	assert.Greater(t, total/float64(orig.Len()), eps/2, "noise was applied")
}

func TestRunSimulateZeroEpsilonUsesDefault(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 0.5, 8000)
	orig, err := audio.Load(context.Background(), in, audio.LoadOptions{})
	require.NoError(t, err)

	be := &fakeBackend{text: "ok"}
	_, err = New(be, nil, nil, nil).Run(context.Background(), Options{
		InputPath: in, OutputDir: t.TempDir(), Simulate: true, Seed: 9,
	})
	require.NoError(t, err)
	require.NotNil(t, be.seen)

	var total float64
	for i, v := range be.seen.Samples {
		total += math.Abs(v - orig.Samples[i])
	}
	assert.InDelta(t, audio.DefaultEpsilon, total/float64(orig.Len()), 1e-3)
}

func TestRunLoadsAtFullScale(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 0.5, 8000)
	be := &fakeBackend{text: "ok"}
	_, err := New(be, nil, nil, nil).Run(context.Background(), Options{InputPath: in, OutputDir: t.TempDir(), Seed: 2})
	require.NoError(t, err)
	require.NotNil(t, be.seen)

	var peak float64
	for _, v := range be.seen.Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	// the input is a 0.5 sine; the temp file must carry it unattenuated
	assert.InDelta(t, 0.5, peak, 1e-3)
}

func TestRunTranscriptionFailureIsRecorded(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 1, 8000)
	out := t.TempDir()
	be := &fakeBackend{err: errors.New("model exploded")}
	m := metrics.New()

	res, err := New(be, nil, nil, m).Run(context.Background(), Options{InputPath: in, OutputDir: out, Seed: 1})
	require.NoError(t, err)
	assert.Error(t, res.TranscriptionErr)
	assert.Equal(t, "Error: model exploded", res.Transcription)

	text := readReport(t, res)
	assert.Equal(t, 1, strings.Count(text, report.TranscriptionHeader))
	assert.True(t, strings.HasSuffix(text, "\nError: model exploded"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptionFailures))
	assert.NoFileExists(t, filepath.Join(out, TempAudioName))
}

func TestRunMissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	var buf bytes.Buffer
	a := New(&fakeBackend{}, console.New(&buf, false), nil, nil)
	a.load = func(context.Context, string, audio.LoadOptions) (*audio.Waveform, error) {
		t.Fatal("loader must not be called")
		return nil, nil
	}

	missing := filepath.Join(t.TempDir(), "nope.wav")
	res, err := a.Run(context.Background(), Options{InputPath: missing, OutputDir: out})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.Equal(t, "[X] File not found: "+missing+"\n", buf.String())
	assert.NoDirExists(t, out)
}

func TestRunRemovesStaleTempAndCleansUpOnFailure(t *testing.T) {
	in := sineWAV(t, t.TempDir(), 1, 8000)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, TempAudioName), []byte("stale"), 0o644))
	// a directory in place of the report makes the report stage fail
	require.NoError(t, os.Mkdir(filepath.Join(out, report.DefaultPath), 0o755))

	be := &fakeBackend{text: "x"}
	m := metrics.New()
	_, err := New(be, nil, nil, m).Run(context.Background(), Options{InputPath: in, OutputDir: out, Seed: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: ")
	require.NotNil(t, be.seen, "stale temp file was replaced by the waveform")
	assert.Equal(t, 8000, be.seen.SampleRate)
	assert.NoFileExists(t, filepath.Join(out, TempAudioName))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("report")))
}

func TestRunLoadFailureStops(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.wav")
	require.NoError(t, os.WriteFile(in, []byte("not a wav file"), 0o644))
	out := t.TempDir()

	be := &fakeBackend{}
	_, err := New(be, nil, nil, nil).Run(context.Background(), Options{InputPath: in, OutputDir: out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load: ")
	assert.Zero(t, be.calls)
	assert.NoFileExists(t, filepath.Join(out, report.DefaultPath))
	assert.NoFileExists(t, filepath.Join(out, TempAudioName))
}

func TestRunRequiresBackend(t *testing.T) {
	_, err := New(nil, nil, nil, nil).Run(context.Background(), Options{InputPath: "x.wav"})
	assert.Error(t, err)
}
