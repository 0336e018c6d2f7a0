package service

import (
	"context"
	"sync"
	"time"

	"tgrelay/internal/constants"
	"tgrelay/internal/metrics"

	"github.com/sirupsen/logrus"
)

// JournalCleaner trims old delivery journal rows
type JournalCleaner interface {
	CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler runs periodic housekeeping: expiring pending entries older than
// the TTL (when one is set) and trimming the delivery journal.
type Scheduler struct {
	relay         *Relay
	journal       JournalCleaner
	pendingTTL    time.Duration
	retentionDays int
	interval      time.Duration
	logger        *logrus.Logger
	mu            sync.RWMutex
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewScheduler creates the housekeeping loop. journal may be nil and a zero
// pendingTTL keeps entries until they are decided.
func NewScheduler(relay *Relay, journal JournalCleaner, pendingTTL time.Duration, retentionDays int, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Duration(constants.DefaultCleanupIntervalMinutes) * time.Minute
	}
	// expiry granularity follows the TTL
	if pendingTTL > 0 && pendingTTL < interval {
		interval = pendingTTL
	}
	return &Scheduler{
		relay:         relay,
		journal:       journal,
		pendingTTL:    pendingTTL,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start blocks until ctx ends or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval":    s.interval.String(),
		"pending_ttl": s.ttl().String(),
	}).Info("Starting housekeeping scheduler")

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

// Stop is safe to call more than once
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// SetPendingTTL changes the expiry age from the next run. Zero disables
// expiry. The tick interval stays what it was at construction.
func (s *Scheduler) SetPendingTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingTTL = ttl
}

func (s *Scheduler) ttl() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingTTL
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if ttl := s.ttl(); ttl > 0 {
		expired := s.relay.Pending().ExpireOlderThan(ttl)
		for _, entry := range expired {
			s.relay.Expire(ctx, entry)
		}
		if len(expired) > 0 {
			s.logger.WithField(LogFieldCount, len(expired)).Info("Expired abandoned pending entries")
		}
		metrics.SetGauge(metrics.PendingEntries, float64(s.relay.Pending().Len()), nil, "Entries awaiting a decision")
	}

	if s.journal == nil || s.retentionDays <= 0 {
		return
	}
	removed, err := s.journal.CleanupOldRecords(ctx, s.retentionDays)
	if err != nil {
		s.logger.WithError(err).Error("Failed to cleanup old journal records")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"retention_days": s.retentionDays,
		LogFieldCount:    removed,
	}).Debug("Completed journal cleanup")
}
