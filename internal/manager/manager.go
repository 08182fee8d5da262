package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"chatd/pkg/types"
)

// Manager tracks the local runtime status and the current model, and is the
// only component that talks to the runtime API.
type Manager struct {
	cfg ManagerConfig

	mu          sync.RWMutex
	status      types.RuntimeStatus
	cur         string
	inventory   []string
	inventoryAt time.Time
	lastErr     string
	attempts    uint64

	// switchMu serializes SwitchModel calls.
	switchMu sync.Mutex
	starts   singleflight.Group

	client    *runtimeClient
	launcher  Launcher
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

// New returns a Manager for the runtime at host with package defaults.
func New(host, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{Host: host, DefaultModel: defaultModel})
}

// CurrentModel returns the model used when a request names none.
func (m *Manager) CurrentModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// RuntimeStatus returns the last observed runtime status.
func (m *Manager) RuntimeStatus() types.RuntimeStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Ready reports whether the runtime was Up at the last observation.
func (m *Manager) Ready() bool { return m.RuntimeStatus() == types.RuntimeUp }

// Host returns the runtime base URL.
func (m *Manager) Host() string { return m.cfg.Host }

// SetEventPublisher replaces the event sink. A nil publisher drops events.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

func (m *Manager) resolveModel(name string) string {
	if name != "" {
		return name
	}
	return m.CurrentModel()
}

func (m *Manager) setStatus(s types.RuntimeStatus) {
	m.mu.Lock()
	prev := m.status
	m.status = s
	m.mu.Unlock()
	if s == types.RuntimeUp {
		runtimeUp.Set(1)
	} else {
		runtimeUp.Set(0)
	}
	if prev != s {
		m.log.Debug().Str("event", "status_change").Str("from", string(prev)).Str("to", string(s)).Msg("runtime status")
	}
}

// markDown records a failed probe unless a start attempt is in progress.
func (m *Manager) markDown() {
	m.mu.Lock()
	prev := m.status
	if prev != types.RuntimeStarting {
		m.status = types.RuntimeDown
	}
	m.mu.Unlock()
	if prev != types.RuntimeStarting {
		runtimeUp.Set(0)
	}
}

func (m *Manager) recordErr(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}
