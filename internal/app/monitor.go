package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// MonitorEventEmitter is called after every runtime monitor change.
type MonitorEventEmitter interface {
	OnRuntimeStatus(rec domain.StatusRecord)
}

// Monitor is the default runtime monitor. It owns the runtime state that
// the dispatcher reads and applies the status updates the dispatcher emits.
// Updates are applied synchronously; recorders are notified afterwards.
type Monitor struct {
	mu       sync.RWMutex
	state    domain.RuntimeState
	status   *domain.Status
	checksum *uint8

	recorders []ports.StatusRecorder
	logger    ports.Logger
	emitter   MonitorEventEmitter
	now       func() time.Time
}

// NewMonitor creates a monitor in RuntimeUnknown.
func NewMonitor(logger ports.Logger, emitter MonitorEventEmitter, recorders ...ports.StatusRecorder) *Monitor {
	return &Monitor{
		state:     domain.RuntimeUnknown,
		recorders: recorders,
		logger:    logger,
		emitter:   emitter,
		now:       time.Now,
	}
}

// RuntimeState implements ports.RuntimeStateReader.
func (m *Monitor) RuntimeState() domain.RuntimeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// UpdateStatus implements ports.StatusSink.
func (m *Monitor) UpdateStatus(status domain.Status) {
	m.mu.Lock()
	m.state = domain.RuntimeStateFor(status)
	m.status = &status
	rec := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("runtime status", ports.String("status", status.String()))
	m.publish(rec)
}

// Checksum implements ports.StatusSink.
func (m *Monitor) Checksum(value uint8) {
	m.mu.Lock()
	m.checksum = &value
	rec := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("program checksum", ports.Uint8("checksum", value))
	m.publish(rec)
}

// SetRuntimeState lets the component that drives program loading move the
// runtime into (or out of) RuntimeLoading.
func (m *Monitor) SetRuntimeState(state domain.RuntimeState) {
	m.mu.Lock()
	m.state = state
	if state == domain.RuntimeLoading {
		m.checksum = nil
	}
	rec := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Debug("runtime state set", ports.String("state", state.String()))
	m.publish(rec)
}

// Snapshot returns the current record.
func (m *Monitor) Snapshot() domain.StatusRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() domain.StatusRecord {
	rec := domain.StatusRecord{
		State:     m.state.String(),
		UpdatedAt: m.now().UTC(),
	}
	if m.status != nil {
		rec.Status = m.status.String()
	}
	if m.checksum != nil {
		value := *m.checksum
		rec.Checksum = &value
	}
	return rec
}

func (m *Monitor) publish(rec domain.StatusRecord) {
	for _, r := range m.recorders {
		if err := r.Record(context.Background(), rec); err != nil {
			m.logger.Warn("failed to record runtime status", ports.Err(err))
		}
	}
	if m.emitter != nil {
		m.emitter.OnRuntimeStatus(rec)
	}
}
