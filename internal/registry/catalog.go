// Package registry holds the catalog of known models and the per-task model
// preferences used to pick a local model.
package registry

import (
	"slices"
	"strings"

	"chatd/pkg/types"
)

// DefaultTaskModel is returned by PreferencesFor when a task has no entry.
const DefaultTaskModel = "llama3.2"

// LocalModels groups models served by the local runtime.
type LocalModels struct {
	Recommended []types.CatalogModel `json:"recommended" yaml:"recommended" toml:"recommended"`
	Specialized []types.CatalogModel `json:"specialized" yaml:"specialized" toml:"specialized"`
}

// Catalog is the static description of known models.
type Catalog struct {
	Local LocalModels `json:"ollama_models" yaml:"ollama_models" toml:"ollama_models"`
	// Online maps a provider name (claude, openai, deepseek) to its models.
	Online map[string][]types.CatalogModel `json:"online_models" yaml:"online_models" toml:"online_models"`
	// Preferences maps a task to candidate models in priority order.
	Preferences map[string][]string `json:"model_preferences" yaml:"model_preferences" toml:"model_preferences"`
}

// Lookup finds a model by name across local and online sections.
func (c *Catalog) Lookup(name string) (types.CatalogModel, bool) {
	for _, group := range [][]types.CatalogModel{c.Local.Recommended, c.Local.Specialized} {
		if i := slices.IndexFunc(group, func(m types.CatalogModel) bool { return m.Name == name }); i >= 0 {
			return group[i], true
		}
	}
	for _, p := range sortedKeys(c.Online) {
		group := c.Online[p]
		if i := slices.IndexFunc(group, func(m types.CatalogModel) bool { return m.Name == name }); i >= 0 {
			return group[i], true
		}
	}
	return types.CatalogModel{}, false
}

// PreferencesFor returns the preferred models for task, or
// [DefaultTaskModel] when the task is unknown.
func (c *Catalog) PreferencesFor(task string) []string {
	if p := c.Preferences[strings.ToLower(strings.TrimSpace(task))]; len(p) > 0 {
		return slices.Clone(p)
	}
	return []string{DefaultTaskModel}
}

// OnlineModels returns a copy of the online section.
func (c *Catalog) OnlineModels() map[string][]types.CatalogModel {
	out := make(map[string][]types.CatalogModel, len(c.Online))
	for k, v := range c.Online {
		out[k] = slices.Clone(v)
	}
	return out
}

// LocalNames lists every local catalog model name, recommended first.
func (c *Catalog) LocalNames() []string {
	out := make([]string, 0, len(c.Local.Recommended)+len(c.Local.Specialized))
	for _, m := range c.Local.Recommended {
		out = append(out, m.Name)
	}
	for _, m := range c.Local.Specialized {
		out = append(out, m.Name)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func model(name, desc, size string, uses ...string) types.CatalogModel {
	return types.CatalogModel{Name: name, Description: desc, Size: size, UseCases: uses}
}

func online(name, desc, provider string, uses ...string) types.CatalogModel {
	return types.CatalogModel{Name: name, Description: desc, Provider: provider, UseCases: uses}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Local: LocalModels{
			Recommended: []types.CatalogModel{
				model("llama3.2", "Fast and efficient model for general tasks", "3.2B", "general", "coding", "conversation"),
				model("codellama", "Specialized for coding tasks", "7B", "coding", "programming", "debugging"),
				model("llama3.1:8b", "Balanced model for complex reasoning", "8B", "reasoning", "analysis", "prediction"),
				model("mistral:7b", "Fast and accurate for various tasks", "7B", "general", "fast_responses"),
				model("phi3:mini", "Lightweight model for quick responses", "3.8B", "quick_tasks", "low_resource"),
			},
			Specialized: []types.CatalogModel{
				model("deepseek-coder", "Advanced coding assistant", "6.7B", "advanced_coding", "architecture", "debugging"),
				model("wizard-coder", "Code generation and explanation", "13B", "code_generation", "explanation"),
				model("neural-chat", "Conversational AI optimized", "7B", "conversation", "assistance"),
			},
		},
		Online: map[string][]types.CatalogModel{
			"claude": {
				online("claude-3-opus", "Most capable Claude model", "anthropic", "complex_reasoning", "analysis", "creative_writing"),
				online("claude-3-sonnet", "Balanced Claude model", "anthropic", "general", "coding", "analysis"),
			},
			"openai": {
				online("gpt-4", "Most capable GPT model", "openai", "complex_tasks", "reasoning", "coding"),
				online("gpt-3.5-turbo", "Fast and efficient GPT model", "openai", "general", "conversation", "quick_tasks"),
			},
			"deepseek": {
				online("deepseek-chat", "Advanced reasoning model", "deepseek", "reasoning", "analysis", "coding"),
			},
		},
		Preferences: map[string][]string{
			"coding":       {"codellama", "deepseek-coder", "claude-3-sonnet"},
			"prediction":   {"llama3.1:8b", "claude-3-opus", "gpt-4"},
			"conversation": {"llama3.2", "neural-chat", "claude-3-sonnet"},
			"analysis":     {"llama3.1:8b", "claude-3-opus", "deepseek-chat"},
			"quick_tasks":  {"phi3:mini", "gpt-3.5-turbo", "llama3.2"},
		},
	}
}
