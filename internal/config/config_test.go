package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		key, val string
		ok       bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"export KEY=value", "KEY", "value", true},
		{`  KEY = "a \"quoted\" \\ path"  `, "KEY", `a "quoted" \ path`, true},
		{`KEY='$literal \n'`, "KEY", `$literal \n`, true},
		{"KEY=value # trailing", "KEY", "value", true},
		{"KEY=", "KEY", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"not a line", "", "", false},
		{"1BAD=x", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			k, v, ok := parseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, k)
			assert.Equal(t, tt.val, v)
		})
	}
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("FORENSIC_TEST_A=file\nFORENSIC_TEST_B=file\n"), 0o644))

	t.Setenv("FORENSIC_TEST_A", "process")
	// registered with t.Setenv so the value is restored after the test
	t.Setenv("FORENSIC_TEST_B", "")
	require.NoError(t, os.Unsetenv("FORENSIC_TEST_B"))

	set := LoadEnv(filepath.Join(dir, "missing.env"), "", dir, p)
	assert.Equal(t, []string{"FORENSIC_TEST_B"}, set)
	assert.Equal(t, "process", os.Getenv("FORENSIC_TEST_A"))
	assert.Equal(t, "file", os.Getenv("FORENSIC_TEST_B"))
}

func load(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()
	return Load(NewFlagSet("forensic"), args)
}

func TestLoadDefaults(t *testing.T) {
	s, err := load(t, "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "clip.wav", s.Input)
	assert.False(t, s.Simulate)
	assert.Equal(t, 0.01, s.Epsilon)
	assert.Equal(t, 0.1, s.Contamination)
	assert.Equal(t, ".", s.OutputDir)
	assert.Equal(t, "whisper", s.Backend)
	assert.Equal(t, "whisper", s.WhisperBin)
	assert.Equal(t, "ffmpeg", s.FFmpeg)
	assert.Equal(t, 2*time.Hour, s.Timeout)
	require.NoError(t, s.Validate())
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "forensic.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("epsilon: 0.2\nseed: 7\noutput_dir: from-file\nbackend: whisper-asr\nwhisper_url: http://asr:9000\n"), 0o644))

	t.Setenv("FORENSIC_SEED", "11")
	t.Setenv("FORENSIC_TIMEOUT", "5m")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	s, err := load(t, "--config", cfg, "--output-dir", "from-flag", "--simulate", "in.mp3")
	require.NoError(t, err)
	assert.Equal(t, 0.2, s.Epsilon, "file beats default")
	assert.Equal(t, int64(11), s.Seed, "env beats file")
	assert.Equal(t, "from-flag", s.OutputDir, "flag beats file")
	assert.Equal(t, 5*time.Minute, s.Timeout)
	assert.True(t, s.Simulate)
	assert.Equal(t, "whisper-asr", s.Backend)
	assert.Equal(t, "sk-test", s.OpenAIAPIKey)
	require.NoError(t, s.Validate())

	o := s.TranscribeOptions()
	assert.Equal(t, "http://asr:9000", o.WhisperURL)
	assert.Equal(t, "whisper-asr", o.Backend)
}

func TestLoadInputErrors(t *testing.T) {
	_, err := load(t)
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = load(t, "a.wav", "b.wav")
	assert.ErrorIs(t, err, ErrTooManyInputs)

	_, err = load(t, "--no-such-flag", "a.wav")
	assert.Error(t, err)

	_, err = load(t, "--help")
	assert.True(t, errors.Is(err, pflag.ErrHelp))

	_, err = load(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "a.wav")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Settings {
		s, err := load(t, "a.wav")
		require.NoError(t, err)
		return s
	}
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"negative epsilon", func(s *Settings) { s.Epsilon = -0.1 }},
		{"zero epsilon", func(s *Settings) { s.Simulate = true; s.Epsilon = 0 }},
		{"zero contamination", func(s *Settings) { s.Contamination = 0 }},
		{"contamination above half", func(s *Settings) { s.Contamination = 0.6 }},
		{"negative timeout", func(s *Settings) { s.Timeout = -time.Second }},
		{"empty output dir", func(s *Settings) { s.OutputDir = "" }},
		{"unknown backend", func(s *Settings) { s.Backend = "sphinx" }},
		{"openai without key", func(s *Settings) { s.Backend = "openai"; s.OpenAIAPIKey = "" }},
		{"cloudflare without token", func(s *Settings) { s.Backend = "cloudflare"; s.CFAccountID = "acc"; s.CFAPIToken = "" }},
		{"asr without url", func(s *Settings) { s.Backend = "whisper-asr"; s.WhisperURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}
}
