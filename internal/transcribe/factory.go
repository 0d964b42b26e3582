package transcribe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/option"
)

const (
	BackendWhisper    = "whisper"
	BackendWhisperASR = "whisper-asr"
	BackendOpenAI     = "openai"
	BackendCloudflare = "cloudflare"
)

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("transcribe: unknown backend")

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Model    string
	Language string
	TmpDir   string

	WhisperBin string
	WhisperURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	CFAccountID string
	CFAPIToken  string
	CFBaseURL   string
}

// DefaultModel is the model used when none is configured.
func DefaultModel(backend string) string {
	switch strings.ToLower(backend) {
	case BackendWhisper:
		return "base"
	case BackendOpenAI:
		return "whisper-1"
	case BackendCloudflare:
		return "@cf/openai/whisper"
	default:
		return ""
	}
}

// New builds the backend named by o.Backend.
func New(o Options) (Backend, error) {
	model := o.Model
	if model == "" {
		model = DefaultModel(o.Backend)
	}
	switch strings.ToLower(o.Backend) {
	case BackendWhisper:
		return NewWhisperCLIBackend(o.WhisperBin, model, o.Language, o.TmpDir), nil
	case BackendWhisperASR:
		if o.WhisperURL == "" {
			return nil, fmt.Errorf("transcribe: %s backend requires a service url", BackendWhisperASR)
		}
		return NewWhisperASRBackend(o.WhisperURL, o.Language), nil
	case BackendOpenAI:
		if o.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("transcribe: %s backend selected but API key is missing", BackendOpenAI)
		}
		var opts []option.RequestOption
		if o.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(o.OpenAIBaseURL))
		}
		return NewOpenAIBackend(o.OpenAIAPIKey, model, o.Language, opts...), nil
	case BackendCloudflare:
		if o.CFAccountID == "" || o.CFAPIToken == "" {
			return nil, fmt.Errorf("transcribe: %s backend requires an account id and an api token", BackendCloudflare)
		}
		return NewCloudflareBackend(o.CFAccountID, o.CFAPIToken, model, o.CFBaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, o.Backend)
	}
}
