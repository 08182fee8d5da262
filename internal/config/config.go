// Package config defines the daemon configuration, its defaults and how it
// is read from files and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string          `json:"addr" yaml:"addr" toml:"addr"`
	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
	Ollama    OllamaConfig    `json:"ollama" yaml:"ollama" toml:"ollama"`
	Behavior  BehaviorConfig  `json:"behavior" yaml:"behavior" toml:"behavior"`
	Providers ProvidersConfig `json:"providers" yaml:"providers" toml:"providers"`
	// CatalogPath points at a models file (.json/.yaml/.toml). Empty uses the built-in catalog.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	// HealthInterval is a Go duration between runtime health probes. Empty disables the monitor.
	HealthInterval string     `json:"health_interval" yaml:"health_interval" toml:"health_interval"`
	CORS           CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
	MaxBodyBytes   int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// LogConfig selects log level, format and an optional rotated log file.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	File   string `json:"file" yaml:"file" toml:"file"`
	// Rotation settings apply only when File is set.
	MaxSizeMB  int `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

// OllamaConfig locates the local runtime and bounds every call to it.
type OllamaConfig struct {
	Host                string `json:"host" yaml:"host" toml:"host"`
	Binary              string `json:"binary" yaml:"binary" toml:"binary"`
	TimeoutSeconds      int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	ProbeTimeoutSeconds int    `json:"probe_timeout_seconds" yaml:"probe_timeout_seconds" toml:"probe_timeout_seconds"`
	StartGraceSeconds   int    `json:"start_grace_seconds" yaml:"start_grace_seconds" toml:"start_grace_seconds"`
	PullTimeoutSeconds  int    `json:"pull_timeout_seconds" yaml:"pull_timeout_seconds" toml:"pull_timeout_seconds"`
}

// BehaviorConfig holds generation defaults.
type BehaviorConfig struct {
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Temperature is nil when unset; an explicit 0 is kept.
	Temperature        *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP               float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK               int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	MaxTokens          int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	SystemPreamble     string   `json:"system_preamble" yaml:"system_preamble" toml:"system_preamble"`
	SessionMaxMessages int      `json:"session_max_messages" yaml:"session_max_messages" toml:"session_max_messages"`
}

// ProviderConfig configures one remote provider.
type ProviderConfig struct {
	APIKey         string `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model          string `json:"model" yaml:"model" toml:"model"`
	MaxTokens      int    `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// ProvidersConfig groups the remote providers.
type ProvidersConfig struct {
	Claude   ProviderConfig `json:"claude" yaml:"claude" toml:"claude"`
	OpenAI   ProviderConfig `json:"openai" yaml:"openai" toml:"openai"`
	DeepSeek ProviderConfig `json:"deepseek" yaml:"deepseek" toml:"deepseek"`
}

// CORSConfig is opt-in; when disabled no CORS middleware is installed.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Defaults.
const (
	DefaultAddr                = "127.0.0.1:8000"
	DefaultOllamaHost          = "http://localhost:11434"
	DefaultOllamaBinary        = "ollama"
	DefaultTimeoutSeconds      = 300
	DefaultProbeTimeoutSeconds = 5
	DefaultStartGraceSeconds   = 5
	DefaultPullTimeoutSeconds  = 1800
	DefaultModel               = "llama3.2"
	DefaultTemperature         = 0.7
	DefaultTopP                = 0.9
	DefaultTopK                = 40
	DefaultMaxTokens           = 2000
	DefaultProviderTimeout     = 120
	DefaultMaxBodyBytes        = 1 << 20
	DefaultHealthInterval      = "30s"
)

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.HealthInterval = DefaultHealthInterval
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
	o := &c.Ollama
	if o.Host == "" {
		o.Host = DefaultOllamaHost
	} else if !strings.Contains(o.Host, "://") {
		// OLLAMA_HOST is conventionally host:port without a scheme.
		o.Host = "http://" + o.Host
	}
	if o.Binary == "" {
		o.Binary = DefaultOllamaBinary
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if o.ProbeTimeoutSeconds <= 0 {
		o.ProbeTimeoutSeconds = DefaultProbeTimeoutSeconds
	}
	if o.StartGraceSeconds <= 0 {
		o.StartGraceSeconds = DefaultStartGraceSeconds
	}
	if o.PullTimeoutSeconds <= 0 {
		o.PullTimeoutSeconds = DefaultPullTimeoutSeconds
	}
	b := &c.Behavior
	if b.DefaultModel == "" {
		b.DefaultModel = DefaultModel
	}
	if b.Temperature == nil {
		t := DefaultTemperature
		b.Temperature = &t
	}
	if b.TopP <= 0 {
		b.TopP = DefaultTopP
	}
	if b.TopK <= 0 {
		b.TopK = DefaultTopK
	}
	if b.MaxTokens <= 0 {
		b.MaxTokens = DefaultMaxTokens
	}
	for _, p := range []*ProviderConfig{&c.Providers.Claude, &c.Providers.OpenAI, &c.Providers.DeepSeek} {
		if p.MaxTokens <= 0 {
			p.MaxTokens = b.MaxTokens
		}
		if p.TimeoutSeconds <= 0 {
			p.TimeoutSeconds = DefaultProviderTimeout
		}
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if !strings.Contains(c.Addr, ":") {
		errs = append(errs, fmt.Errorf("addr %q must be host:port", c.Addr))
	}
	if !strings.HasPrefix(c.Ollama.Host, "http://") && !strings.HasPrefix(c.Ollama.Host, "https://") {
		errs = append(errs, fmt.Errorf("ollama.host %q must start with http:// or https://", c.Ollama.Host))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if t := c.Behavior.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("behavior.temperature %v out of range [0, 2]", *t))
	}
	if c.Behavior.TopP > 1 {
		errs = append(errs, fmt.Errorf("behavior.top_p %v out of range (0, 1]", c.Behavior.TopP))
	}
	if c.Behavior.SessionMaxMessages < 0 {
		errs = append(errs, errors.New("behavior.session_max_messages must be >= 0"))
	}
	if _, err := c.HealthEvery(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// HealthEvery parses HealthInterval. Zero means the monitor is disabled.
func (c Config) HealthEvery() (time.Duration, error) {
	if strings.TrimSpace(c.HealthInterval) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HealthInterval)
	if err != nil {
		return 0, fmt.Errorf("health_interval: %w", err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("health_interval %s must be at least 1s", d)
	}
	return d, nil
}

// Seconds converts a seconds count to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }
