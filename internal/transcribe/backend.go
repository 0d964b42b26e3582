package transcribe

import (
	"context"
	"strings"
	"time"
)

// Segment represents a portion of transcribed audio.
type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Transcript bundles the segments. Raw, when set, is the engine's own full
// text and is preferred over the segments.
type Transcript struct {
	Language string
	Raw      string
	Segments []Segment
	Duration time.Duration
}

// whisperSegment is the segment shape shared by the whisper CLI json output
// and whisper-asr-webservice.
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// fromWhisper builds a transcript keeping the full text verbatim and the
// segment timings. Duration is the end of the last segment.
func fromWhisper(text, language string, segs []whisperSegment) Transcript {
	tr := Transcript{Language: language, Raw: text}
	for _, s := range segs {
		tr.Segments = append(tr.Segments, Segment{StartSec: s.Start, EndSec: s.End, Text: s.Text})
	}
	if n := len(segs); n > 0 {
		tr.Duration = time.Duration(segs[n-1].End * float64(time.Second))
	}
	return tr
}

// Text returns the transcription as a single string: Raw when set, else a
// single segment verbatim, else the trimmed segments joined with spaces.
func (t Transcript) Text() string {
	if t.Raw != "" {
		return t.Raw
	}
	switch len(t.Segments) {
	case 0:
		return ""
	case 1:
		return t.Segments[0].Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Backend is a pluggable transcription backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// Safe runs be over audioPath and never fails the caller: on error the
// returned text is "Error: <message>" and the error is passed along for logging.
func Safe(ctx context.Context, be Backend, audioPath string) (string, error) {
	tr, err := be.Transcribe(ctx, audioPath)
	if err != nil {
		return "Error: " + err.Error(), err
	}
	return tr.Text(), nil
}
