package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// whisperASRBackend talks to a self-hosted whisper-asr-webservice.
type whisperASRBackend struct {
	baseURL  string
	language string
	hc       *http.Client
}

func NewWhisperASRBackend(baseURL, language string) Backend {
	return &whisperASRBackend{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		hc:       &http.Client{Timeout: 30 * time.Minute},
	}
}

type asrResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

func (w *whisperASRBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	q := url.Values{}
	q.Set("encode", "true")
	q.Set("task", "transcribe")
	q.Set("output", "json")
	if w.language != "" {
		q.Set("language", w.language)
	}
	body, err := postFile(ctx, w.hc, w.baseURL+"/asr?"+q.Encode(), "audio_file", audioPath, nil)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper-asr: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return Transcript{}, fmt.Errorf("whisper-asr: empty response")
	}

	var parsed asrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// output=txt deployments answer with the bare transcription
		return Transcript{Segments: []Segment{{Text: string(body)}}}, nil
	}
	return fromWhisper(parsed.Text, parsed.Language, parsed.Segments), nil
}
