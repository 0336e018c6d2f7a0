package service

import (
	"context"
	"sync"
	"time"

	"tgrelay/internal/metrics"

	"github.com/sirupsen/logrus"
)

// StalePendingCounter counts undecided entries past a given age
type StalePendingCounter interface {
	CountOlderThan(age time.Duration) int
}

// PendingMonitor warns about prompts nobody has answered. Unlike the
// scheduler's TTL it never drops anything.
type PendingMonitor struct {
	pending        StalePendingCounter
	checkInterval  time.Duration
	staleThreshold time.Duration
	logger         *logrus.Logger
	metrics        *metrics.Registry
	mu             sync.RWMutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

func NewPendingMonitor(pending StalePendingCounter, checkInterval, staleThreshold time.Duration, logger *logrus.Logger) *PendingMonitor {
	return &PendingMonitor{
		pending:        pending,
		checkInterval:  checkInterval,
		staleThreshold: staleThreshold,
		logger:         logger,
		metrics:        metrics.GetRegistry(),
		stopCh:         make(chan struct{}),
	}
}

// Start blocks until ctx ends or Stop is called
func (m *PendingMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	m.logger.WithFields(logrus.Fields{
		"check_interval":  m.checkInterval.String(),
		"stale_threshold": m.threshold().String(),
	}).Info("Starting pending entry monitor")

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkStaleEntries()
		}
	}
}

func (m *PendingMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// SetThreshold changes the warning age; it applies from the next check
func (m *PendingMonitor) SetThreshold(threshold time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleThreshold = threshold
}

func (m *PendingMonitor) threshold() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.staleThreshold
}

func (m *PendingMonitor) checkStaleEntries() int {
	threshold := m.threshold()
	if threshold <= 0 {
		return 0
	}

	count := m.pending.CountOlderThan(threshold)
	m.metrics.SetGauge(metrics.StaleEntries, float64(count), nil, "Pending entries past the stale threshold")
	if count > 0 {
		m.logger.WithFields(logrus.Fields{
			LogFieldCount: count,
			"threshold":   threshold.String(),
		}).Warn("Pending entries are waiting for a decision longer than expected")
	}
	return count
}
