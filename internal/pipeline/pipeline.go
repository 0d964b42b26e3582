// Package pipeline runs one forensic pass over an audio file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zudsniper/forensic-audio-analyzer/internal/anomaly"
	"github.com/zudsniper/forensic-audio-analyzer/internal/audio"
	"github.com/zudsniper/forensic-audio-analyzer/internal/console"
	"github.com/zudsniper/forensic-audio-analyzer/internal/features"
	"github.com/zudsniper/forensic-audio-analyzer/internal/metrics"
	"github.com/zudsniper/forensic-audio-analyzer/internal/report"
	"github.com/zudsniper/forensic-audio-analyzer/internal/spectrogram"
	"github.com/zudsniper/forensic-audio-analyzer/internal/transcribe"
)

// TempAudioName is the waveform handed to the transcriber.
const TempAudioName = "temp_audio.wav"

// ErrInputNotFound is returned, wrapped with the path, when the input does not exist.
var ErrInputNotFound = errors.New("pipeline: input file not found")

// Options describe one run.
type Options struct {
	InputPath     string
	Simulate      bool
	Epsilon       float64 // 0 means audio.DefaultEpsilon
	Seed          int64   // 0 seeds noise and forest from the clock
	Contamination float64
	OutputDir     string
	FFmpegBin     string
	TmpDir        string
	BackendName   string // only used in progress output
}

// Result is what a successful run produced.
type Result struct {
	Duration   float64
	SampleRate int
	Simulated  bool
	Verdict    anomaly.Verdict

	Transcription    string
	TranscriptionErr error

	SpectrogramPath string
	ReportPath      string
}

// Manipulated reports the anomaly verdict.
func (r *Result) Manipulated() bool { return r.Verdict.Anomalous }

type loadFunc func(ctx context.Context, path string, opts audio.LoadOptions) (*audio.Waveform, error)

// Analyzer owns the collaborators of a run. It holds no per-run state.
type Analyzer struct {
	backend transcribe.Backend
	out     *console.Printer
	log     *zap.Logger
	metrics *metrics.Metrics
	load    loadFunc
}

// New returns an Analyzer. Nil printer, logger or metrics are replaced by no-op ones.
func New(be transcribe.Backend, out *console.Printer, log *zap.Logger, m *metrics.Metrics) *Analyzer {
	if out == nil {
		out = console.Discard()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Analyzer{backend: be, out: out, log: log, metrics: m, load: audio.Load}
}

func (a *Analyzer) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	a.metrics.ObserveStage(name, start)
	if err != nil {
		a.metrics.StageFailures.WithLabelValues(name).Inc()
		a.log.Error("stage failed", zap.String("stage", name), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	a.log.Debug("stage done", zap.String("stage", name), zap.Duration("took", time.Since(start)))
	return nil
}

// Run executes load, noise, temp write, spectrogram, detection, transcription,
// report and cleanup, stopping at the first failing stage. Transcription
// failures are recorded in the report instead.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*Result, error) {
	if a.backend == nil {
		return nil, errors.New("pipeline: no transcription backend")
	}
	if _, err := os.Stat(opts.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.out.Fail("File not found: %s", opts.InputPath)
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.InputPath)
		}
		a.out.Fail("Cannot access %s: %v", opts.InputPath, err)
		return nil, fmt.Errorf("input: %w", err)
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	tempPath, err := filepath.Abs(filepath.Join(outDir, TempAudioName))
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	res := &Result{
		Simulated:       opts.Simulate,
		SpectrogramPath: filepath.Join(outDir, spectrogram.DefaultPath),
		ReportPath:      filepath.Join(outDir, report.DefaultPath),
	}
	log := a.log.With(zap.String("input", opts.InputPath))

	var w *audio.Waveform
	a.out.Step("Loading audio...")
	if err := a.stage("load", func() error {
		var err error
		w, err = a.load(ctx, opts.InputPath, audio.LoadOptions{FFmpegBin: opts.FFmpegBin, TmpDir: opts.TmpDir})
		return err
	}); err != nil {
		return nil, err
	}
	res.Duration, res.SampleRate = w.Duration(), w.SampleRate
	a.metrics.AudioDuration.Set(res.Duration)
	a.metrics.AudioSampleRate.Set(float64(res.SampleRate))
	a.out.Info("Audio Duration: %.2f seconds | Sample Rate: %d Hz", res.Duration, res.SampleRate)

	metrics.SetBool(a.metrics.SimulationApplied, opts.Simulate)
	if opts.Simulate {
		a.out.Warn("Adding adversarial noise to the audio...")
		var rng *rand.Rand
		if opts.Seed != 0 {
			rng = rand.New(rand.NewSource(opts.Seed))
		}
		eps := opts.Epsilon
		if eps <= 0 {
			eps = audio.DefaultEpsilon
		}
		start := time.Now()
		w = audio.InjectNoise(w, eps, rng)
		a.metrics.ObserveStage("noise", start)
		log.Debug("noise injected", zap.Float64("epsilon", eps))
	}

	if _, err := audio.RemoveIfExists(tempPath); err != nil {
		a.out.Warn("Warning: Could not remove existing temp audio file: %v", err)
	}
	tempLive := false
	defer func() {
		if !tempLive {
			return
		}
		if _, err := audio.RemoveIfExists(tempPath); err != nil {
			a.out.Warn("Warning: Could not remove temp audio file: %v", err)
		}
	}()
	if err := a.stage("temp_write", func() error {
		tempLive = true
		return audio.WriteWAV(tempPath, w)
	}); err != nil {
		return nil, err
	}

	var mel *features.Spectrogram
	a.out.Step("Saving spectrogram...")
	if err := a.stage("spectrogram", func() error {
		var err error
		if mel, err = features.MelSpectrogram(w.Samples, w.SampleRate, features.DefaultMelParams()); err != nil {
			return err
		}
		return spectrogram.Render(res.SpectrogramPath, mel, spectrogram.DefaultOptions())
	}); err != nil {
		return nil, err
	}

	if err := a.stage("detect", func() error {
		summary, err := features.Summary(mel)
		if err != nil {
			return err
		}
		cfg := anomaly.DefaultConfig()
		cfg.Seed = opts.Seed
		if opts.Contamination > 0 {
			cfg.Contamination = opts.Contamination
		}
		res.Verdict, err = anomaly.NewDetector(cfg).Detect(summary)
		return err
	}); err != nil {
		return nil, err
	}
	metrics.SetBool(a.metrics.ManipulationDetected, res.Manipulated())
	log.Debug("verdict", zap.Bool("anomalous", res.Verdict.Anomalous),
		zap.Float64("score", res.Verdict.Score), zap.Float64("offset", res.Verdict.Offset))
	if res.Manipulated() {
		a.out.OK("Adversarial Audio Detected")
	} else {
		a.out.OK("No Manipulation Detected")
	}

	if opts.BackendName != "" {
		a.out.Step("Loading %s model...", opts.BackendName)
	}
	a.out.Pending("Transcribing...")
	start := time.Now()
	res.Transcription, res.TranscriptionErr = transcribe.Safe(ctx, a.backend, tempPath)
	a.metrics.ObserveStage("transcribe", start)
	if res.TranscriptionErr != nil {
		a.metrics.TranscriptionFailures.Inc()
		log.Warn("transcription failed", zap.Error(res.TranscriptionErr))
	}
	a.out.OK("Transcription Complete:\n")
	a.out.Raw(res.Transcription)

	a.out.Step("Saving report...")
	if err := a.stage("report", func() error {
		return report.Write(res.ReportPath, report.Report{
			AudioFile:     opts.InputPath,
			Duration:      res.Duration,
			SampleRate:    res.SampleRate,
			Simulated:     opts.Simulate,
			Manipulated:   res.Manipulated(),
			Transcription: res.Transcription,
		})
	}); err != nil {
		return nil, err
	}
	a.out.OK("Report saved as %s", res.ReportPath)

	tempLive = false
	removed, err := audio.RemoveIfExists(tempPath)
	switch {
	case err != nil:
		a.out.Warn("Warning: Could not remove temp audio file: %v", err)
	case removed:
		a.out.OK("Temporary audio file removed.")
	}

	a.out.OK("Forensic Audio Analysis Completed.")
	return res, nil
}
