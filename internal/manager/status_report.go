package manager

import (
	"slices"
	"time"

	"chatd/pkg/types"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	Status       types.RuntimeStatus
	CurrentModel string
	Inventory    []string
	InventoryAt  time.Time
	Err          string
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Status:       m.status,
		CurrentModel: m.cur,
		Inventory:    slices.Clone(m.inventory),
		InventoryAt:  m.inventoryAt,
		Err:          m.lastErr,
	}
}

// Status builds a detailed status response. sessions is filled in by the caller.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		RuntimeStatus: m.status,
		CurrentModel:  m.cur,
		Inventory:     slices.Clone(m.inventory),
		LastError:     m.lastErr,
		StartAttempts: m.attempts,
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	if resp.Inventory == nil {
		resp.Inventory = []string{}
	}
	if !m.inventoryAt.IsZero() {
		resp.InventoryUnix = m.inventoryAt.Unix()
	}
	return resp
}
