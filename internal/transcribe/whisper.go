package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// whisperCLIBackend runs the openai-whisper command line tool locally.
type whisperCLIBackend struct {
	bin      string
	model    string
	language string
	tmpDir   string
}

func NewWhisperCLIBackend(bin, model, language, tmpDir string) Backend {
	if bin == "" {
		bin = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &whisperCLIBackend{bin: bin, model: model, language: language, tmpDir: tmpDir}
}

type whisperOut struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

func (w *whisperCLIBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	outDir, err := os.MkdirTemp(w.tmpDir, "whisper-")
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{audioPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}
	cmd := exec.CommandContext(ctx, w.bin, args...)
	cmd.Env = os.Environ()
	if _, err := cmd.Output(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return Transcript{}, fmt.Errorf("whisper failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return Transcript{}, fmt.Errorf("run whisper: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper output: %w", err)
	}
	var parsed whisperOut
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Transcript{}, fmt.Errorf("parse whisper output: %w", err)
	}

	return fromWhisper(parsed.Text, parsed.Language, parsed.Segments), nil
}
