package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		HTTP:      HTTPConfig{Addr: ":8080"},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		LLM: LLMConfig{
			Backend:        BackendVertex,
			Project:        "p",
			Location:       "us-central1",
			Model:          "gemini-2.5-flash",
			Timeout:        time.Minute,
			Temperature:    0.7,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     4 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, BackendVertex, cfg.LLM.Backend)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.EqualValues(t, 3, cfg.LLM.MaxAttempts)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.True(t, cfg.Features.EventExtraction)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  addr: ":7000"
  base_url: "https://addon.example.com"
llm:
  project: from-file
  model: gemini-file
  timeout: 15s
features:
  event_extraction: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("INBOXDRAFT_LLM_PROJECT", "from-env")
	t.Setenv("INBOXDRAFT_RATE_LIMIT_BURST", "42")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("model", "flag-default", "")
	flags.String("addr", ":1111", "")
	require.NoError(t, flags.Parse([]string{"--model", "gemini-flag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "unset flag must not override the file")
	assert.Equal(t, "https://addon.example.com", cfg.HTTP.BaseURL)
	assert.Equal(t, "from-env", cfg.LLM.Project, "env overrides file")
	assert.Equal(t, "gemini-flag", cfg.LLM.Model, "explicit flag overrides file")
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 42, cfg.RateLimit.Burst)
	assert.False(t, cfg.Features.EventExtraction)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o600))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.LLM.Backend = "openai" },
			wantErr: "llm.backend",
		},
		{
			name:    "vertex without project",
			mutate:  func(c *Config) { c.LLM.Project = "" },
			wantErr: "llm.project",
		},
		{
			name: "genai with api key",
			mutate: func(c *Config) {
				c.LLM.Backend = BackendGenAI
				c.LLM.Project = ""
				c.LLM.APIKey = "k"
			},
		},
		{
			name: "bedrock without region",
			mutate: func(c *Config) {
				c.LLM.Backend = BackendBedrock
				c.LLM.Region = ""
			},
			wantErr: "llm.region",
		},
		{
			name:    "plain http base url",
			mutate:  func(c *Config) { c.HTTP.BaseURL = "http://addon.example.com" },
			wantErr: "https",
		},
		{
			name:   "loopback http base url",
			mutate: func(c *Config) { c.HTTP.BaseURL = "http://localhost:8080" },
		},
		{
			name:    "id token without audience",
			mutate:  func(c *Config) { c.Auth.VerifyIDToken = true },
			wantErr: "auth.verify_id_token",
		},
		{
			name:    "half tls pair",
			mutate:  func(c *Config) { c.HTTP.TLSCertFile = "cert.pem" },
			wantErr: "tls",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.LLM.MaxAttempts = 0 },
			wantErr: "llm.max_attempts",
		},
		{
			name:    "backoff bounds",
			mutate:  func(c *Config) { c.LLM.MaxBackoff = time.Millisecond },
			wantErr: "llm.max_backoff",
		},
		{
			name: "cache without ttl",
			mutate: func(c *Config) {
				c.Cache.Path = "cache.db"
				c.Cache.TTL = 0
			},
			wantErr: "cache.ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Addr = ""
	cfg.LLM.Model = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.addr")
	assert.Contains(t, err.Error(), "llm.model")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/inboxdraft/config.yaml", DefaultPath())
}

func TestHTTPConfig_ValidateBaseURL(t *testing.T) {
	for _, ok := range []string{"https://addon.example.com", "http://localhost:8080", "http://[::1]:8080"} {
		assert.NoError(t, HTTPConfig{BaseURL: ok}.ValidateBaseURL(), ok)
	}

	err := HTTPConfig{BaseURL: "addon.example.com"}.ValidateBaseURL()
	assert.ErrorContains(t, err, "not an absolute URL")

	err = HTTPConfig{BaseURL: "http://addon.example.com"}.ValidateBaseURL()
	assert.ErrorContains(t, err, "must use https")
}
