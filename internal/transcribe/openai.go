package transcribe

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI speech-to-text via audio.transcriptions
type openAIBackend struct {
	client   openai.Client
	model    string
	language string
}

func NewOpenAIBackend(apiKey, model, language string, opts ...option.RequestOption) Backend {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &openAIBackend{
		client:   openai.NewClient(opts...),
		model:    model,
		language: language,
	}
}

func (o *openAIBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Transcript{}, err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(o.model),
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Transcript{}, fmt.Errorf("openai: %w", err)
	}
	// No segment timings in the plain json format.
	return Transcript{Language: o.language, Segments: []Segment{{Text: resp.Text}}}, nil
}
