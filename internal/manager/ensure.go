package manager

import (
	"context"
	"time"

	"chatd/pkg/types"
)

// HealthCheck probes the runtime version endpoint and records the result.
// A failed probe never demotes a start attempt that is still in progress,
// and a probe cut short by the caller's ctx leaves the status untouched.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	ok := m.probe(ctx)
	switch {
	case ok:
		m.setStatus(types.RuntimeUp)
	case ctx.Err() != nil:
		m.log.Debug().Err(ctx.Err()).Str("event", "probe_abandoned").Msg("caller gone; status unchanged")
	default:
		m.markDown()
	}
	return ok
}

func (m *Manager) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	if err := m.client.version(ctx); err != nil {
		m.log.Debug().Err(err).Str("event", "probe_failed").Msg("runtime probe failed")
		return false
	}
	return true
}

// EnsureRunning returns true once the runtime answers its probe, starting it
// if necessary. Concurrent callers share a single start attempt. A caller
// whose ctx ends stops waiting but the attempt itself continues.
func (m *Manager) EnsureRunning(ctx context.Context) bool {
	if m.HealthCheck(ctx) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	ch := m.starts.DoChan("start", func() (any, error) {
		return m.startOnce(), nil
	})
	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}

// startOnce runs one Down -> Starting -> {Up|Down} attempt. It is detached
// from any caller context.
func (m *Manager) startOnce() bool {
	ctx := context.Background()
	if m.probe(ctx) {
		m.setStatus(types.RuntimeUp)
		return true
	}
	m.setStatus(types.RuntimeDown)
	m.setStatus(types.RuntimeStarting)
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
	runtimeStarts.Inc()
	m.publish(Event{Name: EventStartAttempt, Fields: map[string]any{"host": m.cfg.Host}})
	m.log.Info().Str("event", "runtime_start").Str("host", m.cfg.Host).Msg("starting runtime")

	if err := m.launcher.Launch(ctx); err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "runtime_start_failed").Msg("runtime launch failed")
		m.setStatus(types.RuntimeDown)
		m.publish(Event{Name: EventStartResult, Fields: map[string]any{"ok": false, "error": err.Error()}})
		return false
	}
	if m.cfg.StartGrace > 0 {
		time.Sleep(m.cfg.StartGrace)
	}
	ok := m.probe(ctx)
	if ok {
		m.setStatus(types.RuntimeUp)
	} else {
		m.recordErr(ErrUnavailable("runtime did not answer after start"))
		m.setStatus(types.RuntimeDown)
	}
	m.publish(Event{Name: EventStartResult, Fields: map[string]any{"ok": ok}})
	m.log.Info().Str("event", "runtime_start_result").Bool("ok", ok).Msg("runtime start finished")
	return ok
}
