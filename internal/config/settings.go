package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zudsniper/forensic-audio-analyzer/internal/anomaly"
	"github.com/zudsniper/forensic-audio-analyzer/internal/audio"
	"github.com/zudsniper/forensic-audio-analyzer/internal/transcribe"
)

// EnvPrefix prefixes every environment override, e.g. FORENSIC_OUTPUT_DIR.
const EnvPrefix = "FORENSIC"

// Errors returned by Load and Validate; the CLI maps all of them to exit status 2.
var (
	ErrMissingInput    = errors.New("config: missing input audio file")
	ErrTooManyInputs   = errors.New("config: exactly one input audio file is accepted")
	ErrInvalidSettings = errors.New("config: invalid settings")
)

// Settings is the resolved configuration of one run.
type Settings struct {
	Input string `mapstructure:"-"`

	Simulate      bool    `mapstructure:"simulate"`
	Epsilon       float64 `mapstructure:"epsilon"`
	Seed          int64   `mapstructure:"seed"`
	Contamination float64 `mapstructure:"contamination"`

	OutputDir   string        `mapstructure:"output_dir"`
	TmpDir      string        `mapstructure:"tmp_dir"`
	FFmpeg      string        `mapstructure:"ffmpeg"`
	MetricsFile string        `mapstructure:"metrics_file"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Debug       bool          `mapstructure:"debug"`

	Backend    string `mapstructure:"backend"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
	WhisperBin string `mapstructure:"whisper_bin"`
	WhisperURL string `mapstructure:"whisper_url"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	CFAccountID   string `mapstructure:"cf_account_id"`
	CFAPIToken    string `mapstructure:"cf_api_token"`
}

// flagKeys maps flag names to viper keys.
var flagKeys = map[string]string{
	"simulate":      "simulate",
	"epsilon":       "epsilon",
	"seed":          "seed",
	"contamination": "contamination",
	"output-dir":    "output_dir",
	"tmpdir":        "tmp_dir",
	"ffmpeg":        "ffmpeg",
	"metrics-file":  "metrics_file",
	"timeout":       "timeout",
	"debug":         "debug",
	"backend":       "backend",
	"model":         "model",
	"language":      "language",
	"whisper-bin":   "whisper_bin",
	"whisper-url":   "whisper_url",
}

// secrets are read from the environment only, under both the prefixed and
// the conventional names.
var secrets = map[string][]string{
	"openai_api_key":  {"OPENAI_API_KEY"},
	"openai_base_url": {"OPENAI_BASE_URL"},
	"cf_account_id":   {"CF_ACCOUNT_ID"},
	"cf_api_token":    {"CF_API_TOKEN"},
}

// NewFlagSet returns the command line of the analyzer.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.Bool("simulate", false, "Simulate adversarial noise before analysis")
	fs.Float64("epsilon", audio.DefaultEpsilon, "Magnitude of the simulated noise")
	fs.Int64("seed", 0, "Noise and forest seed (0 seeds from the clock)")
	fs.Float64("contamination", anomaly.DefaultContamination, "Expected outlier share, in (0, 0.5]")

	fs.String("output-dir", ".", "Directory for spectrogram, temp audio and report")
	fs.String("tmpdir", "", "Scratch directory for conversions (default system temp)")
	fs.String("ffmpeg", "ffmpeg", "ffmpeg binary used for non WAV/MP3 input")
	fs.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	fs.Duration("timeout", 2*time.Hour, "Abort the run after this long")
	fs.Bool("debug", false, "Verbose diagnostics on stderr")

	fs.String("backend", transcribe.BackendWhisper, "Transcription backend: whisper|whisper-asr|openai|cloudflare")
	fs.String("model", "", "Backend model (default depends on backend)")
	fs.String("language", "", "Spoken language hint, e.g. en")
	fs.String("whisper-bin", "whisper", "openai-whisper CLI binary")
	fs.String("whisper-url", "", "whisper-asr-webservice base URL")

	fs.String("config", "", "YAML config file")
	return fs
}

// Load parses args into fs and resolves settings from defaults, the optional
// YAML file, the environment and the flags, lowest to highest.
func Load(fs *pflag.FlagSet, args []string) (*Settings, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("config: flag --%s not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("config: bind --%s: %w", name, err)
		}
	}
	for key, names := range secrets {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	cfgPath, _ := fs.GetString("config")
	if cfgPath == "" {
		cfgPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", cfgPath, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	switch fs.NArg() {
	case 0:
		return &s, ErrMissingInput
	case 1:
		s.Input = fs.Arg(0)
	default:
		return &s, fmt.Errorf("%w: got %d", ErrTooManyInputs, fs.NArg())
	}
	return &s, nil
}

// Validate checks value ranges and backend credentials.
func (s *Settings) Validate() error {
	var errs []error
	if s.Epsilon <= 0 {
		errs = append(errs, fmt.Errorf("epsilon must be > 0, got %v", s.Epsilon))
	}
	if s.Contamination <= 0 || s.Contamination > 0.5 {
		errs = append(errs, fmt.Errorf("contamination must be in (0, 0.5], got %v", s.Contamination))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %v", s.Timeout))
	}
	if s.OutputDir == "" {
		errs = append(errs, errors.New("output dir must not be empty"))
	}
	switch strings.ToLower(s.Backend) {
	case transcribe.BackendWhisper:
		if s.WhisperBin == "" {
			errs = append(errs, errors.New("whisper backend requires --whisper-bin"))
		}
	case transcribe.BackendWhisperASR:
		if s.WhisperURL == "" {
			errs = append(errs, errors.New("whisper-asr backend requires --whisper-url"))
		}
	case transcribe.BackendOpenAI:
		if s.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai backend requires OPENAI_API_KEY"))
		}
	case transcribe.BackendCloudflare:
		if s.CFAccountID == "" || s.CFAPIToken == "" {
			errs = append(errs, errors.New("cloudflare backend requires CF_ACCOUNT_ID and CF_API_TOKEN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", s.Backend))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// TranscribeOptions maps the settings onto the backend factory.
func (s *Settings) TranscribeOptions() transcribe.Options {
	return transcribe.Options{
		Backend:       s.Backend,
		Model:         s.Model,
		Language:      s.Language,
		TmpDir:        s.TmpDir,
		WhisperBin:    s.WhisperBin,
		WhisperURL:    s.WhisperURL,
		OpenAIAPIKey:  s.OpenAIAPIKey,
		OpenAIBaseURL: s.OpenAIBaseURL,
		CFAccountID:   s.CFAccountID,
		CFAPIToken:    s.CFAPIToken,
	}
}
