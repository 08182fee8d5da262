package manager

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// ListModels returns the models installed on the runtime, starting it if
// needed. Any failure yields an empty list.
func (m *Manager) ListModels(ctx context.Context) []string {
	if !m.EnsureRunning(ctx) {
		return []string{}
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	names, err := m.client.tags(ctx)
	if err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "list_models_failed").Msg("list models")
		return []string{}
	}
	m.mu.Lock()
	m.inventory = slices.Clone(names)
	m.inventoryAt = time.Now()
	m.mu.Unlock()
	return names
}

// PullModel downloads name onto the runtime. It returns true only when the
// runtime reports a success status; progress is published as events.
func (m *Manager) PullModel(ctx context.Context, name string) bool {
	if name == "" || !m.EnsureRunning(ctx) {
		pullsTotal.WithLabelValues(outcome(false)).Inc()
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PullTimeout)
	defer cancel()
	m.log.Info().Str("event", "pull_start").Str("model", name).Msg("pulling model")
	ok, err := m.client.pull(ctx, name, func(pl pullLine) {
		m.log.Debug().Str("event", "pull_progress").Str("model", name).Str("status", pl.Status).Msg("pull progress")
		m.publish(Event{Name: EventPullProgress, Model: name, Fields: map[string]any{
			"status": pl.Status, "total": pl.Total, "completed": pl.Completed,
		}})
	})
	if err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "pull_failed").Str("model", name).Msg("pull model")
	} else if !ok {
		m.log.Warn().Str("event", "pull_incomplete").Str("model", name).Msg("pull ended without success status")
	}
	pullsTotal.WithLabelValues(outcome(ok)).Inc()
	m.publish(Event{Name: EventPullDone, Model: name, Fields: map[string]any{"ok": ok}})
	return ok
}

// DeleteModel removes name from the runtime. It does not try to start the
// runtime.
func (m *Manager) DeleteModel(ctx context.Context, name string) bool {
	if name == "" || !m.HealthCheck(ctx) {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	if err := m.client.delete(ctx, name); err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "delete_failed").Str("model", name).Msg("delete model")
		return false
	}
	m.mu.Lock()
	m.inventory = slices.DeleteFunc(m.inventory, func(s string) bool { return s == name })
	m.mu.Unlock()
	m.publish(Event{Name: EventModelDeleted, Model: name})
	return true
}

// ShowModel returns the runtime's description of name as raw JSON. It does
// not try to start the runtime.
func (m *Manager) ShowModel(ctx context.Context, name string) (json.RawMessage, bool) {
	if name == "" || !m.HealthCheck(ctx) {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	info, err := m.client.show(ctx, name)
	if err != nil {
		if !IsModelNotFound(err) {
			m.recordErr(err)
		}
		m.log.Debug().Err(err).Str("event", "show_failed").Str("model", name).Msg("show model")
		return nil, false
	}
	return info, true
}
