package manager

import (
	"context"
	"slices"
	"strings"
)

const switchProbePrompt = "Hello, respond with 'Model switched successfully'"

// SwitchModel makes name the current model. The model is pulled when the
// runtime does not have it, and a short probe generation must return usable
// text before the switch is committed. Switches are serialized.
func (m *Manager) SwitchModel(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	if !slices.Contains(m.ListModels(ctx), name) {
		m.log.Warn().Str("event", "switch_pull").Str("model", name).Msg("model not installed, pulling")
		if !m.PullModel(ctx, name) {
			m.log.Error().Str("event", "switch_failed").Str("model", name).Msg("pull failed")
			return false
		}
	}

	reply, err := m.generate(ctx, switchProbePrompt, name)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			m.recordErr(err)
		}
		m.log.Error().Err(err).Str("event", "switch_failed").Str("model", name).Msg("probe generation failed")
		return false
	}

	m.mu.Lock()
	prev := m.cur
	m.cur = name
	m.mu.Unlock()
	m.publish(Event{Name: EventSwitchDone, Model: name, Fields: map[string]any{"previous": prev}})
	m.log.Info().Str("event", "switch_done").Str("model", name).Str("previous", prev).Msg("model switched")
	return true
}

// BestModelForTask picks a local model for task: the first preferred model
// already installed, else the first preference if it can be pulled, else the
// current model.
func (m *Manager) BestModelForTask(ctx context.Context, task string) string {
	prefs := m.cfg.Preferences[strings.ToLower(strings.TrimSpace(task))]
	if len(prefs) == 0 {
		prefs = []string{m.cfg.DefaultModel}
	}
	installed := m.ListModels(ctx)
	for _, p := range prefs {
		if slices.Contains(installed, p) {
			return p
		}
	}
	if m.PullModel(ctx, prefs[0]) {
		return prefs[0]
	}
	return m.CurrentModel()
}
