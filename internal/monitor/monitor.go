// Package monitor probes the local runtime on a fixed schedule so status
// reporting stays current between requests.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"chatd/pkg/types"
)

// Checker is the probe target.
type Checker interface {
	HealthCheck(ctx context.Context) bool
	RuntimeStatus() types.RuntimeStatus
}

// Monitor runs Checker.HealthCheck every interval and logs status changes.
type Monitor struct {
	checker Checker
	timeout time.Duration
	log     zerolog.Logger
	cron    *cron.Cron

	mu     sync.Mutex
	last   types.RuntimeStatus
	checks int
}

// New returns a stopped Monitor. timeout bounds each probe; zero uses the
// interval.
func New(checker Checker, every, timeout time.Duration, logger *zerolog.Logger) *Monitor {
	if timeout <= 0 || timeout > every {
		timeout = every
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	m := &Monitor{
		checker: checker,
		timeout: timeout,
		log:     l.With().Str("component", "monitor").Logger(),
		last:    types.RuntimeUnknown,
	}
	m.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	m.cron.Schedule(cron.Every(every), cron.FuncJob(func() { m.Check(context.Background()) }))
	return m
}

// Start begins scheduling probes in the background.
func (m *Monitor) Start() {
	m.log.Info().Str("event", "monitor_start").Msg("health monitor started")
	m.cron.Start()
}

// Stop halts scheduling and waits for a running probe to finish or ctx to end.
func (m *Monitor) Stop(ctx context.Context) {
	done := m.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Check runs one probe and reports whether the runtime answered.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ok := m.checker.HealthCheck(ctx)
	status := m.checker.RuntimeStatus()

	m.mu.Lock()
	prev := m.last
	m.last = status
	m.checks++
	m.mu.Unlock()

	if prev != status {
		ev := m.log.Info()
		if status == types.RuntimeDown {
			ev = m.log.Warn()
		}
		ev.Str("event", "runtime_status").Str("from", string(prev)).Str("to", string(status)).Msg("runtime status changed")
	}
	return ok
}

// Checks returns how many probes have run.
func (m *Monitor) Checks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checks
}
