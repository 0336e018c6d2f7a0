package service

import (
	"context"
	"fmt"
	"sync"

	"tgrelay/internal/metrics"
	"tgrelay/internal/models"
	"tgrelay/internal/retry"
	"tgrelay/pkg/telegram"
	"tgrelay/pkg/telegram/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UpdateHandler consumes updates one at a time
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update types.Update)
}

// UpdatePoller long-polls getUpdates and feeds a single handler in arrival
// order. Serial handling is what lets the relay treat each reference as
// owned by one event at a time.
type UpdatePoller struct {
	client  telegram.Client
	handler UpdateHandler
	config  models.TelegramConfig
	backoff *retry.Backoff
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
	offset  int64
	runID   string
}

// NewUpdatePoller creates a new long-polling loop
func NewUpdatePoller(client telegram.Client, handler UpdateHandler, telegramConfig models.TelegramConfig, retryConfig models.RetryConfig, logger *logrus.Logger) *UpdatePoller {
	return &UpdatePoller{
		client:  client,
		handler: handler,
		config:  telegramConfig,
		backoff: retry.NewBackoff(retry.FromRetryConfig(retryConfig)),
		logger:  logger,
	}
}

// Start verifies the token with getMe and begins polling
func (up *UpdatePoller) Start(ctx context.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()

	if up.running {
		return fmt.Errorf("update poller is already running")
	}

	me, err := up.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach the Bot API before starting poller: %w", err)
	}

	up.ctx, up.cancel = context.WithCancel(ctx)
	up.running = true
	up.runID = uuid.NewString()

	up.wg.Add(1)
	go up.pollLoop()

	up.logger.WithFields(logrus.Fields{
		LogFieldRunID: up.runID,
		"bot":         me.Username,
		"timeout_sec": up.config.PollTimeoutSec,
	}).Info("Update poller started successfully")

	return nil
}

// Stop cancels the long poll and waits for the in-flight update to finish
func (up *UpdatePoller) Stop() {
	up.mu.Lock()
	defer up.mu.Unlock()

	if !up.running {
		return
	}

	up.logger.Info("Stopping update poller...")
	up.cancel()
	up.wg.Wait()
	up.running = false
	up.logger.WithField(LogFieldRunID, up.runID).Info("Update poller stopped")
}

// IsRunning returns whether the poller is currently active
func (up *UpdatePoller) IsRunning() bool {
	up.mu.RLock()
	defer up.mu.RUnlock()
	return up.running
}

func (up *UpdatePoller) pollLoop() {
	defer up.wg.Done()

	failures := 0
	for {
		if up.ctx.Err() != nil {
			return
		}

		updates, err := up.client.GetUpdates(up.ctx, up.offset, up.config.PollTimeoutSec)
		if err != nil {
			if up.ctx.Err() != nil {
				return
			}
			failures++
			delay := up.backoff.Delay(failures)
			metrics.IncrementCounter(metrics.PollErrors, nil, "Failed getUpdates calls")

			fields := logrus.Fields{LogFieldAttempt: failures, LogFieldBackoff: delay.String()}
			if IsVerboseLogging(up.ctx) {
				fields["error"] = err.Error()
			}
			up.logger.WithFields(fields).Warn("Update polling failed, retrying with backoff")

			if retry.Sleep(up.ctx, delay) != nil {
				return
			}
			continue
		}
		failures = 0

		for _, update := range updates {
			// advance first so a failing update is never replayed
			up.offset = update.UpdateID + 1
			up.dispatch(update)
		}
	}
}

// dispatch is detached from poller cancellation: Stop waits for the
// current update to finish. The handler bounds each call it makes.
func (up *UpdatePoller) dispatch(update types.Update) {
	up.handler.HandleUpdate(context.WithoutCancel(up.ctx), update)
}
