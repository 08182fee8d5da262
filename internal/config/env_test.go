package config

import "testing"

// clearEnv blanks every bound variable; viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
}

func TestApplyEnvLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9000")
	t.Setenv("OLLAMA_HOST", "http://10.0.0.5:11434")
	t.Setenv("OLLAMA_TIMEOUT", "120")
	t.Setenv("CLAUDE_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oa")
	t.Setenv("DEEPSEEK_API_KEY", "sk-ds")

	cfg := Config{}
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Fatalf("addr: %q", cfg.Addr)
	}
	if cfg.Ollama.Host != "http://10.0.0.5:11434" || cfg.Ollama.TimeoutSeconds != 120 {
		t.Fatalf("ollama: %+v", cfg.Ollama)
	}
	if cfg.Providers.Claude.APIKey != "sk-ant" || cfg.Providers.OpenAI.APIKey != "sk-oa" || cfg.Providers.DeepSeek.APIKey != "sk-ds" {
		t.Fatalf("providers: %+v", cfg.Providers)
	}
}

func TestApplyEnvPrefixedWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "http://legacy:11434")
	t.Setenv("CHATD_OLLAMA_HOST", "http://prefixed:11434")
	cfg := Config{}
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Ollama.Host != "http://prefixed:11434" {
		t.Fatalf("host: %q", cfg.Ollama.Host)
	}
}

func TestApplyEnvKeepsFileValuesWhenUnset(t *testing.T) {
	clearEnv(t)
	cfg := Config{Addr: "127.0.0.1:7000"}
	cfg.Ollama.Host = "http://file:11434"
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" || cfg.Ollama.Host != "http://file:11434" {
		t.Fatalf("file values overwritten: %+v", cfg)
	}
}

func TestApplyEnvPortOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8123")
	cfg := Config{Addr: "localhost:7000"}
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != "localhost:8123" {
		t.Fatalf("addr: %q", cfg.Addr)
	}
}

func TestApplyEnvBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_TIMEOUT", "five minutes")
	if err := ApplyEnv(&Config{}); err == nil {
		t.Fatalf("expected error for non-numeric OLLAMA_TIMEOUT")
	}
}

func TestResolveWithFileAndEnv(t *testing.T) {
	clearEnv(t)
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: 127.0.0.1:7000\nbehavior:\n  default_model: phi3:mini\n")
	t.Setenv("CHATD_DEFAULT_MODEL", "mistral:7b")
	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Behavior.DefaultModel != "mistral:7b" || cfg.Addr != "127.0.0.1:7000" || cfg.Ollama.Host != DefaultOllamaHost {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestResolveAddsSchemeToBareOllamaHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "127.0.0.1:11434")
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Ollama.Host != "http://127.0.0.1:11434" {
		t.Fatalf("host: %q", cfg.Ollama.Host)
	}
}
