package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tgrelay/internal/config"
	"tgrelay/internal/constants"
	"tgrelay/internal/database"
	"tgrelay/internal/models"
	"tgrelay/internal/retry"
	"tgrelay/internal/service"
	"tgrelay/internal/store"
	"tgrelay/internal/tracing"
	"tgrelay/pkg/telegram"
	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes chat ids and usernames)")
	configPath = flag.String("config", "", "Path to a JSON or YAML configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("tgrelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting tgrelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configureLogLevel(logger, cfg.LogLevel, *verbose)

	tracingManager := tracing.NewTracingManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	client := telegram.NewClientWithLogger(types.ClientConfig{
		BaseURL: cfg.Telegram.APIBaseURL,
		Token:   cfg.Telegram.Token,
		Timeout: cfg.Telegram.HTTPTimeoutSec,
	}, nil, logger)

	relay := service.NewRelay(client, stores.destinations, store.NewPendingStore(), stores.journal, logger)
	relay.SetCallTimeout(time.Duration(cfg.Telegram.HTTPTimeoutSec) * time.Second)

	ctxWithVerbose := service.WithVerbose(ctx, *verbose)

	// the liveness endpoint answers while the token is still being checked
	server := NewServer(cfg, logger, *verbose)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()
	shutdownServer := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.GracefulShutdownSec)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}

	poller := service.NewUpdatePoller(client, relay, cfg.Telegram, cfg.Retry, logger)
	if err := poller.Start(ctxWithVerbose); err != nil {
		if shutdownErr := shutdownServer(); shutdownErr != nil {
			logger.WithError(shutdownErr).Warn("Failed to shutdown server")
		}
		return fmt.Errorf("failed to start update poller: %w", err)
	}
	defer poller.Stop()

	scheduler := service.NewScheduler(relay, stores.cleaner,
		time.Duration(cfg.Relay.PendingTTLMinutes)*time.Minute,
		cfg.Relay.RetentionDays,
		time.Duration(cfg.Relay.CleanupIntervalMinutes)*time.Minute,
		logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	monitor := service.NewPendingMonitor(relay.Pending(),
		time.Duration(constants.DefaultStaleCheckMinutes)*time.Minute,
		time.Duration(cfg.Relay.StaleWarnMinutes)*time.Minute,
		logger)
	go monitor.Start(ctx)
	defer monitor.Stop()

	if *configPath != "" {
		watcher := config.NewConfigWatcher(*configPath, 0, logger)
		watcher.OnConfigChange(func(newCfg *models.Config) {
			applyRuntimeConfig(logger, newCfg, *verbose, scheduler, monitor)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.WithError(err).Warn("Configuration watcher stopped")
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	if err := shutdownServer(); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

// applyRuntimeConfig pushes the settings that can change without a restart
func applyRuntimeConfig(logger *logrus.Logger, cfg *models.Config, verbose bool, scheduler *service.Scheduler, monitor *service.PendingMonitor) {
	configureLogLevel(logger, cfg.LogLevel, verbose)
	scheduler.SetPendingTTL(time.Duration(cfg.Relay.PendingTTLMinutes) * time.Minute)
	monitor.SetThreshold(time.Duration(cfg.Relay.StaleWarnMinutes) * time.Minute)
}

// configureLogLevel applies the configured level. Verbose mode always wins.
func configureLogLevel(logger *logrus.Logger, level string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - chat ids and usernames will be logged")
		return
	}
	if level == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", level)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(parsed)
}

// relayStores bundles the storage chosen by the configuration. journal and
// cleaner are nil interfaces when the journal is off.
type relayStores struct {
	destinations service.DestinationStore
	journal      service.DeliveryJournal
	cleaner      service.JournalCleaner
	closer       io.Closer
}

func (s *relayStores) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

func openStores(ctx context.Context, cfg *models.Config, logger *logrus.Logger) (*relayStores, error) {
	stores := &relayStores{}

	needDB := cfg.Storage.Backend == models.StorageBackendSQLite || cfg.Storage.JournalEnabled
	var db *database.Database
	if needDB {
		backoffConfig := retry.FromRetryConfig(cfg.Retry)
		backoffConfig.MaxAttempts = constants.DefaultDatabaseRetryAttempts
		backoff := retry.NewBackoff(backoffConfig)

		err := backoff.Retry(ctx, func() error {
			var initErr error
			db, initErr = database.New(cfg.Storage.DatabasePath, logger)
			if initErr != nil {
				logger.Warnf("Failed to initialize database: %v", initErr)
			}
			return initErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database after retries: %w", err)
		}
		stores.closer = db
	}

	if cfg.Storage.Backend == models.StorageBackendSQLite {
		stores.destinations = db
	} else {
		file := store.NewDestinationFile(cfg.Storage.DestinationFile, logger)
		logger.WithField("path", file.Path()).Debug("Using destination file")
		stores.destinations = file
	}

	if cfg.Storage.JournalEnabled {
		stores.journal = db
		stores.cleaner = db
	}

	logger.WithFields(logrus.Fields{
		"backend": cfg.Storage.Backend,
		"journal": cfg.Storage.JournalEnabled,
	}).Info("Storage initialized")
	return stores, nil
}
