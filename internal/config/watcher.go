package config

import (
	"context"
	"os"
	"sync"
	"time"

	"tgrelay/internal/constants"
	"tgrelay/internal/models"

	"github.com/sirupsen/logrus"
)

// settleDelay gives an editor time to finish writing before the reload
const settleDelay = 100 * time.Millisecond

// ConfigWatcher polls the configuration file and reloads it when its
// modification time changes. Only settings that are safe to change at
// runtime are acted on by the registered callbacks.
type ConfigWatcher struct {
	configPath string
	interval   time.Duration
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     *models.Config
	callbacks  []func(*models.Config)
}

// NewConfigWatcher creates a watcher. A non-positive interval uses the default.
func NewConfigWatcher(configPath string, interval time.Duration, logger *logrus.Logger) *ConfigWatcher {
	if interval <= 0 {
		interval = time.Duration(constants.DefaultConfigWatchIntervalSec) * time.Second
	}
	return &ConfigWatcher{
		configPath: configPath,
		interval:   interval,
		logger:     logger,
		callbacks:  make([]func(*models.Config), 0),
	}
}

// Start loads the file and blocks, polling for changes until ctx ends
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	config, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}

	cw.mu.Lock()
	cw.config = config
	cw.mu.Unlock()

	stat, err := os.Stat(cw.configPath)
	if err != nil {
		return err
	}
	lastModTime := stat.ModTime()

	cw.logger.WithFields(logrus.Fields{
		"path":     cw.configPath,
		"interval": cw.interval.String(),
	}).Info("Configuration watcher started")

	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return nil

		case <-ticker.C:
			stat, err := os.Stat(cw.configPath)
			if err != nil {
				cw.logger.WithError(err).Error("Failed to stat configuration file")
				continue
			}
			if stat.ModTime().Equal(lastModTime) {
				continue
			}
			cw.logger.Debug("Configuration file changed")
			lastModTime = stat.ModTime()

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settleDelay):
			}
			cw.reloadConfig()
		}
	}
}

// GetConfig returns the last successfully loaded configuration
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// OnConfigChange registers a callback run after each successful reload
func (cw *ConfigWatcher) OnConfigChange(callback func(*models.Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// reloadConfig keeps the previous configuration when the new file is invalid
func (cw *ConfigWatcher) reloadConfig() {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration, keeping previous settings")
		return
	}

	cw.mu.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := make([]func(*models.Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")
	cw.logConfigChanges(oldConfig, newConfig)

	for _, callback := range callbacks {
		cw.notify(callback, newConfig)
	}
}

func (cw *ConfigWatcher) notify(callback func(*models.Config), config *models.Config) {
	defer func() {
		if r := recover(); r != nil {
			cw.logger.WithField("panic", r).Error("Config change callback panicked")
		}
	}()
	callback(config)
}

// logConfigChanges logs the settings applied at runtime. Anything else
// takes effect on the next restart.
func (cw *ConfigWatcher) logConfigChanges(old, new *models.Config) {
	if old == nil {
		return
	}

	if old.LogLevel != new.LogLevel {
		cw.logger.WithFields(logrus.Fields{
			"old": old.LogLevel,
			"new": new.LogLevel,
		}).Info("Log level changed")
	}

	if old.Relay.PendingTTLMinutes != new.Relay.PendingTTLMinutes {
		cw.logger.WithFields(logrus.Fields{
			"old": old.Relay.PendingTTLMinutes,
			"new": new.Relay.PendingTTLMinutes,
		}).Info("Pending TTL changed")
	}

	if old.Relay.StaleWarnMinutes != new.Relay.StaleWarnMinutes {
		cw.logger.WithFields(logrus.Fields{
			"old": old.Relay.StaleWarnMinutes,
			"new": new.Relay.StaleWarnMinutes,
		}).Info("Stale warning threshold changed")
	}

	if old.Storage != new.Storage || old.Server != new.Server || old.Telegram != new.Telegram {
		cw.logger.Warn("Storage, server and Telegram settings changed; restart to apply them")
	}
}
