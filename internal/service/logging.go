package service

import (
	"context"

	"tgrelay/internal/privacy"
	"tgrelay/internal/tracing"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// WithVerbose marks ctx for verbose logging
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// LogWithContext returns an entry carrying the request and trace ids found in ctx
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id := tracing.GetRequestID(ctx); id != "" {
		entry = entry.WithField(LogFieldRequestID, id)
	}
	if id := tracing.GetTraceID(ctx); id != "" {
		entry = entry.WithField(LogFieldTraceID, id)
	}
	return entry
}

// chatFields masks a chat id unless verbose logging is on
func chatFields(ctx context.Context, chatID int64) logrus.Fields {
	if IsVerboseLogging(ctx) {
		return logrus.Fields{LogFieldChatID: chatID}
	}
	return logrus.Fields{LogFieldChatID: privacy.MaskChatID(chatID)}
}
