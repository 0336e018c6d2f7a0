package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgrelay/internal/constants"
	"tgrelay/internal/retry"
)

var dbBackoff = retry.NewBackoff(retry.BackoffConfig{
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond,
	Multiplier:   2,
	MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
	Jitter:       true,
})

// retryableDBOperation retries transient SQLite failures such as a locked database
func retryableDBOperation(ctx context.Context, operationName string, operation func() error) error {
	var permanent error

	err := dbBackoff.Retry(ctx, func() error {
		err := operation()
		if err != nil && !isRetryableDBError(err) {
			permanent = err
			return nil
		}
		return err
	})

	if permanent != nil {
		return fmt.Errorf("%s failed (non-retryable): %w", operationName, permanent)
	}
	if err != nil {
		return fmt.Errorf("%s failed after retries: %w", operationName, err)
	}
	return nil
}

// isRetryableDBError determines if a database error is worth retrying
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "disk I/O error")
}
