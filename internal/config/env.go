package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to environment variables, most specific first.
var envBindings = map[string][]string{
	"host":                   {"CHATD_HOST", "HOST"},
	"port":                   {"CHATD_PORT", "PORT"},
	"log.level":              {"CHATD_LOG_LEVEL"},
	"log.format":             {"CHATD_LOG_FORMAT"},
	"log.file":               {"CHATD_LOG_FILE"},
	"ollama.host":            {"CHATD_OLLAMA_HOST", "OLLAMA_HOST"},
	"ollama.binary":          {"CHATD_OLLAMA_BINARY"},
	"ollama.timeout":         {"CHATD_OLLAMA_TIMEOUT", "OLLAMA_TIMEOUT"},
	"behavior.default_model": {"CHATD_DEFAULT_MODEL"},
	"providers.claude":       {"CHATD_CLAUDE_API_KEY", "CLAUDE_API_KEY"},
	"providers.openai":       {"CHATD_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"providers.deepseek":     {"CHATD_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY"},
	"catalog_path":           {"CHATD_CATALOG_PATH"},
	"health_interval":        {"CHATD_HEALTH_INTERVAL"},
}

// ApplyEnv overlays environment variables onto cfg. Only variables that are
// set override file values.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}

	if v.IsSet("host") || v.IsSet("port") {
		host, port := splitAddr(cfg.Addr)
		str("host", &host)
		str("port", &port)
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("config: PORT %q is not a number", port)
		}
		cfg.Addr = net.JoinHostPort(host, port)
	}
	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
	str("log.file", &cfg.Log.File)
	str("ollama.host", &cfg.Ollama.Host)
	str("ollama.binary", &cfg.Ollama.Binary)
	if v.IsSet("ollama.timeout") {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString("ollama.timeout")))
		if err != nil {
			return fmt.Errorf("config: OLLAMA_TIMEOUT %q is not a number of seconds", v.GetString("ollama.timeout"))
		}
		cfg.Ollama.TimeoutSeconds = n
	}
	str("behavior.default_model", &cfg.Behavior.DefaultModel)
	str("providers.claude", &cfg.Providers.Claude.APIKey)
	str("providers.openai", &cfg.Providers.OpenAI.APIKey)
	str("providers.deepseek", &cfg.Providers.DeepSeek.APIKey)
	str("catalog_path", &cfg.CatalogPath)
	str("health_interval", &cfg.HealthInterval)
	return nil
}

func splitAddr(addr string) (string, string) {
	if addr == "" {
		addr = DefaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1", "8000"
	}
	return host, port
}
