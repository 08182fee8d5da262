package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: ":9999"
ollama:
  host: http://gpu-box:11434
  timeout_seconds: 60
behavior:
  default_model: mistral:7b
  temperature: 0.2
providers:
  claude:
    api_key: sk-ant
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Ollama.Host != "http://gpu-box:11434" || cfg.Ollama.TimeoutSeconds != 60 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Behavior.DefaultModel != "mistral:7b" || cfg.Behavior.Temperature == nil || *cfg.Behavior.Temperature != 0.2 || cfg.Providers.Claude.APIKey != "sk-ant" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","behavior":{"max_tokens":512},"cors":{"enabled":true,"allowed_origins":["*"]}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Behavior.MaxTokens != 512 || !cfg.CORS.Enabled || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nhealth_interval=\"1m\"\n[ollama]\nbinary=\"/opt/ollama\"\n[log]\nformat=\"json\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Ollama.Binary != "/opt/ollama" || cfg.Log.Format != "json" || cfg.HealthInterval != "1m" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	for name, body := range map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "ollama": }`,
		"bad.toml": "addr=:8080\nollama\n",
	} {
		if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestDefaultsAndValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.Ollama.TimeoutSeconds != 300 || cfg.Behavior.TopK != 40 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Providers.OpenAI.MaxTokens != DefaultMaxTokens {
		t.Fatalf("provider max tokens should inherit behavior: %d", cfg.Providers.OpenAI.MaxTokens)
	}
	if d, _ := cfg.HealthEvery(); d.String() != "30s" {
		t.Fatalf("health interval: %v", d)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Addr = "nowhere"
	cfg.Ollama.Host = "localhost:11434"
	cfg.Log.Level = "loud"
	cfg.HealthInterval = "soon"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"addr", "ollama.host", "log.level", "health_interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestHealthEveryDisabled(t *testing.T) {
	cfg := Default()
	cfg.HealthInterval = ""
	if d, err := cfg.HealthEvery(); err != nil || d != 0 {
		t.Fatalf("expected disabled, got %v %v", d, err)
	}
}

func TestResolveKeepsExplicitZeroTemperature(t *testing.T) {
	clearEnv(t)
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "behavior:\n  temperature: 0\n")
	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Behavior.Temperature == nil || *cfg.Behavior.Temperature != 0 {
		t.Fatalf("temperature: %v", cfg.Behavior.Temperature)
	}

	if def := Default(); def.Behavior.Temperature == nil || *def.Behavior.Temperature != DefaultTemperature {
		t.Fatalf("default temperature: %v", def.Behavior.Temperature)
	}
}

func TestValidateTemperatureRange(t *testing.T) {
	for _, tc := range []struct {
		temp float64
		ok   bool
	}{{0, true}, {2, true}, {-0.1, false}, {2.5, false}} {
		cfg := Default()
		cfg.Behavior.Temperature = &tc.temp
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("temperature %v: unexpected error %v", tc.temp, err)
		}
		if !tc.ok && (err == nil || !strings.Contains(err.Error(), "behavior.temperature")) {
			t.Fatalf("temperature %v: expected range error, got %v", tc.temp, err)
		}
	}
}
