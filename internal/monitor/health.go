package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/christian-lee/genrescope/internal/predict"
)

// Status is the backend liveness shown in the badge.
type Status string

const (
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

// Checker performs one liveness request.
type Checker interface {
	Health(ctx context.Context) (*predict.Health, error)
}

// checkTimeout caps a single health request. A stalled backend must not
// hold the badge on its previous status.
const checkTimeout = 10 * time.Second

// HealthEvent is emitted when the backend status changes.
type HealthEvent struct {
	Status Status
	Info   *predict.Health // nil unless online
	Err    error
}

// HealthMonitor polls the backend on a fixed interval. No retries or
// backoff: one failed check is enough to report offline.
type HealthMonitor struct {
	checker Checker

	mu       sync.Mutex
	interval time.Duration
	status   Status
	info     *predict.Health
	reset    chan time.Duration
}

func NewHealthMonitor(checker Checker, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		checker:  checker,
		interval: interval,
		status:   StatusChecking,
		reset:    make(chan time.Duration, 1),
	}
}

// Status returns the last known status and health body.
func (m *HealthMonitor) Status() (Status, *predict.Health) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.info
}

// SetInterval changes the polling interval of a running Watch.
func (m *HealthMonitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	changed := d != m.interval
	m.interval = d
	m.mu.Unlock()
	if !changed {
		return
	}
	select {
	case m.reset <- d:
	default:
		// a pending reset will read the latest interval anyway
	}
}

// Watch checks immediately, then on every tick, and sends an event on each
// status transition. Blocks until ctx is cancelled.
func (m *HealthMonitor) Watch(ctx context.Context, events chan<- HealthEvent) error {
	m.mu.Lock()
	interval := m.interval
	m.mu.Unlock()

	slog.Info("health monitor started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx, events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.reset:
			m.mu.Lock()
			interval = m.interval
			m.mu.Unlock()
			ticker.Reset(interval)
			slog.Info("health interval changed", "interval", interval)
		case <-ticker.C:
			m.check(ctx, events)
		}
	}
}

func (m *HealthMonitor) check(ctx context.Context, events chan<- HealthEvent) {
	m.mu.Lock()
	timeout := min(m.interval, checkTimeout)
	m.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	info, err := m.checker.Health(cctx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	next := StatusOnline
	if err != nil {
		next = StatusOffline
		info = nil
	}

	m.mu.Lock()
	prev := m.status
	m.status = next
	m.info = info
	m.mu.Unlock()

	if prev == next {
		return
	}
	if err != nil {
		slog.Warn("backend OFFLINE", "err", err)
	} else {
		slog.Info("backend ONLINE", "model", info.Model, "genres", len(info.Genres))
	}

	select {
	case events <- HealthEvent{Status: next, Info: info, Err: err}:
	case <-ctx.Done():
	}
}
