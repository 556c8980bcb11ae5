package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. INBOXDRAFT_LLM_MODEL.
const EnvPrefix = "INBOXDRAFT"

// LLM backends.
const (
	BackendVertex  = "vertex"
	BackendGenAI   = "genai"
	BackendBedrock = "bedrock"
)

// HTTPConfig configures the add-on HTTP listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// BaseURL is the public URL the add-on manifest points at. It is also the
	// audience of the host's system ID token.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	TLSCertFile  string        `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile   string        `mapstructure:"tls_key_file" yaml:"tls_key_file"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// AuthConfig controls verification of requests coming from the add-on host.
type AuthConfig struct {
	VerifyIDToken bool `mapstructure:"verify_id_token" yaml:"verify_id_token"`

	// ServiceAccountEmail, when set, must match the email claim of the
	// host's system ID token.
	ServiceAccountEmail string `mapstructure:"service_account_email" yaml:"service_account_email"`
}

// RateLimitConfig is the per-client token bucket. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`

	// TrustProxy keys clients by X-Forwarded-For. Enable only behind a
	// proxy that sets it.
	TrustProxy bool `mapstructure:"trust_proxy" yaml:"trust_proxy"`
}

// LLMConfig selects and tunes the generative model backend.
type LLMConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	Project     string        `mapstructure:"project" yaml:"project"`
	Location    string        `mapstructure:"location" yaml:"location"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Region      string        `mapstructure:"region" yaml:"region"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`

	MaxAttempts    uint          `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

// FeaturesConfig toggles optional behaviour.
type FeaturesConfig struct {
	EventExtraction bool `mapstructure:"event_extraction" yaml:"event_extraction"`
}

// CacheConfig configures the summary cache. An empty path disables it.
type CacheConfig struct {
	Path string        `mapstructure:"path" yaml:"path"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// MetricsConfig holds configuration for the metrics server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	HTTP        HTTPConfig      `mapstructure:"http" yaml:"http"`
	Auth        AuthConfig      `mapstructure:"auth" yaml:"auth"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	LLM         LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Features    FeaturesConfig  `mapstructure:"features" yaml:"features"`
	Cache       CacheConfig     `mapstructure:"cache" yaml:"cache"`
	PromptsFile string          `mapstructure:"prompts_file" yaml:"prompts_file"`
	Metrics     MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Debug       bool            `mapstructure:"debug" yaml:"debug"`
}

var defaults = map[string]any{
	"http.addr":          ":8080",
	"http.base_url":      "",
	"http.tls_cert_file": "",
	"http.tls_key_file":  "",
	"http.read_timeout":  30 * time.Second,
	"http.write_timeout": 90 * time.Second,

	"auth.verify_id_token":       false,
	"auth.service_account_email": "",

	"rate_limit.rps":   5.0,
	"rate_limit.burst": 10,

	"rate_limit.trust_proxy": false,

	"llm.backend":         BackendVertex,
	"llm.project":         "",
	"llm.location":        "us-central1",
	"llm.model":           "gemini-2.5-flash",
	"llm.api_key":         "",
	"llm.region":          "us-east-1",
	"llm.timeout":         60 * time.Second,
	"llm.temperature":     0.7,
	"llm.max_attempts":    3,
	"llm.initial_backoff": 500 * time.Millisecond,
	"llm.max_backoff":     8 * time.Second,

	"features.event_extraction": true,

	"cache.path": "",
	"cache.ttl":  24 * time.Hour,

	"prompts_file": "",

	"metrics.enabled": true,
	"metrics.addr":    ":9090",

	"debug": false,
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":             "http.addr",
	"base-url":         "http.base_url",
	"tls-cert-file":    "http.tls_cert_file",
	"tls-key-file":     "http.tls_key_file",
	"verify-id-token":  "auth.verify_id_token",
	"llm-backend":      "llm.backend",
	"project":          "llm.project",
	"location":         "llm.location",
	"model":            "llm.model",
	"region":           "llm.region",
	"llm-timeout":      "llm.timeout",
	"event-extraction": "features.event_extraction",
	"cache-path":       "cache.path",
	"prompts-file":     "prompts_file",
	"metrics":          "metrics.enabled",
	"metrics-addr":     "metrics.addr",
	"debug":            "debug",
}

// DefaultPath returns $XDG_CONFIG_HOME/inboxdraft/config.yaml, falling back
// to ~/.config/inboxdraft/config.yaml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "inboxdraft", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxdraft", "config.yaml")
}

// Load reads the configuration. Precedence, lowest first: defaults, the
// YAML file at path (missing file is fine), INBOXDRAFT_* environment
// variables, and flags that were explicitly set. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.BaseURL != "" {
		if err := c.HTTP.ValidateBaseURL(); err != nil {
			errs = append(errs, err)
		}
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("http.tls_cert_file and http.tls_key_file must be set together"))
	}
	if c.Auth.VerifyIDToken && c.HTTP.BaseURL == "" {
		errs = append(errs, errors.New("auth.verify_id_token requires http.base_url (the token audience)"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1 when rate limiting is enabled"))
	}

	switch c.LLM.Backend {
	case BackendVertex:
		if c.LLM.Project == "" {
			errs = append(errs, errors.New("llm.project is required for the vertex backend"))
		}
		if c.LLM.Location == "" {
			errs = append(errs, errors.New("llm.location is required for the vertex backend"))
		}
	case BackendGenAI:
		if c.LLM.APIKey == "" && c.LLM.Project == "" {
			errs = append(errs, errors.New("llm.api_key or llm.project is required for the genai backend"))
		}
	case BackendBedrock:
		if c.LLM.Region == "" {
			errs = append(errs, errors.New("llm.region is required for the bedrock backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.backend %q is not one of vertex, genai, bedrock", c.LLM.Backend))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model must not be empty"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is outside [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.max_attempts must be at least 1"))
	}
	if c.LLM.MaxBackoff < c.LLM.InitialBackoff {
		errs = append(errs, errors.New("llm.max_backoff must not be smaller than llm.initial_backoff"))
	}

	if c.Cache.Path != "" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive when the cache is enabled"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr must not be empty when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// ValidateBaseURL checks that base_url is absolute and uses https unless it
// names a loopback host.
func (h HTTPConfig) ValidateBaseURL() error {
	u, err := url.Parse(h.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("http.base_url %q is not an absolute URL", h.BaseURL)
	}
	if u.Scheme != "https" && !isLoopback(u.Hostname()) {
		return fmt.Errorf("http.base_url %q must use https", h.BaseURL)
	}
	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
