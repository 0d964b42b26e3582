package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/zudsniper/forensic-audio-analyzer/internal/config"
	"github.com/zudsniper/forensic-audio-analyzer/internal/console"
	"github.com/zudsniper/forensic-audio-analyzer/internal/logging"
	"github.com/zudsniper/forensic-audio-analyzer/internal/metrics"
	"github.com/zudsniper/forensic-audio-analyzer/internal/pipeline"
	"github.com/zudsniper/forensic-audio-analyzer/internal/transcribe"
)

const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

func main() {
	config.LoadDefaultEnv()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, isTerminal(os.Stdout)))
}

func isTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func run(args []string, stdout, stderr io.Writer, color bool) int {
	out := console.New(stdout, color)

	fs := config.NewFlagSet("forensic")
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Forensic Audio Analyzer CLI Tool")
		fmt.Fprintln(stderr, "\nUsage: forensic [flags] <audio_file>")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	s, err := config.Load(fs, args)
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, config.ErrMissingInput), errors.Is(err, config.ErrTooManyInputs):
		out.Fail("%v", err)
		fs.Usage()
		return exitUsage
	case err != nil:
		out.Fail("%v", err)
		return exitUsage
	}
	if err := s.Validate(); err != nil {
		out.Fail("%v", err)
		return exitUsage
	}

	logger, err := logging.Build(s.Debug)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitUsage
	}
	defer logger.Sync() //nolint:errcheck
	logger, runID := logging.WithRun(logger)

	be, err := transcribe.New(s.TranscribeOptions())
	if err != nil {
		out.Fail("%v", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	logger.Debug("starting", zap.String("input", s.Input), zap.String("backend", s.Backend),
		zap.Bool("simulate", s.Simulate), zap.Int64("seed", s.Seed))

	m := metrics.New()
	_, runErr := pipeline.New(be, out, logger, m).Run(ctx, pipeline.Options{
		InputPath:     s.Input,
		Simulate:      s.Simulate,
		Epsilon:       s.Epsilon,
		Seed:          s.Seed,
		Contamination: s.Contamination,
		OutputDir:     s.OutputDir,
		FFmpegBin:     s.FFmpeg,
		TmpDir:        s.TmpDir,
		BackendName:   s.Backend,
	})
	if errors.Is(runErr, pipeline.ErrInputNotFound) {
		// the resolver printed its own line and no file is written
		logger.Error("run failed", zap.String("run_id", runID), zap.Error(runErr))
		return exitRun
	}
	if err := m.Flush(s.MetricsFile); err != nil {
		out.Warn("Warning: Could not write metrics file: %v", err)
		logger.Warn("metrics flush failed", zap.String("path", s.MetricsFile), zap.Error(err))
	}

	if runErr != nil {
		out.Fail("%v", runErr)
		logger.Error("run failed", zap.String("run_id", runID), zap.Error(runErr))
		return exitRun
	}
	out.OK("All tasks completed successfully.")
	out.OK("Exiting...")
	return exitOK
}
