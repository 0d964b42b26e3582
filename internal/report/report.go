// Package report renders the plain-text forensic report.
package report

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultPath         = "audio_report.txt"
	TranscriptionHeader = "=== Transcription ==="
)

// Report is everything the text report shows.
type Report struct {
	AudioFile     string
	Duration      float64 // seconds
	SampleRate    int
	Simulated     bool
	Manipulated   bool
	Transcription string
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Render returns the report text. The transcription is copied verbatim,
// without escaping or a trailing newline.
func Render(r Report) string {
	var b strings.Builder
	b.WriteString("=== Forensic Audio Analysis Report ===\n")
	fmt.Fprintf(&b, "Audio File: %s\n", r.AudioFile)
	fmt.Fprintf(&b, "Duration: %.2f seconds\n", r.Duration)
	fmt.Fprintf(&b, "Sample Rate: %d Hz\n", r.SampleRate)
	fmt.Fprintf(&b, "Adversarial Simulation: %s\n", yesNo(r.Simulated))
	fmt.Fprintf(&b, "Manipulation Detected: %s\n\n", yesNo(r.Manipulated))
	b.WriteString(TranscriptionHeader + "\n")
	b.WriteString(r.Transcription)
	return b.String()
}

// Write renders r to path, replacing any existing file.
func Write(path string, r Report) error {
	return os.WriteFile(path, []byte(Render(r)), 0o644)
}
