package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Available reports whether bin can be found on PATH.
func Available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// ConvertToWAV uses ffmpeg to decode any container it understands into a mono
// 16-bit PCM WAV file, keeping the native sample rate.
// Returns the path to the converted file; the caller removes it.
func ConvertToWAV(ctx context.Context, bin, inPath, tmpDir string) (string, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	f, err := os.CreateTemp(tmpDir, base+"_*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	out := f.Name()
	f.Close()

	// ffmpeg -y -i input -vn -ac 1 -c:a pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", inPath,
		"-vn", "-ac", "1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	return out, nil
}
