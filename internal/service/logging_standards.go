package service

// Logging standards for tgrelay
//
// Field names shared by every log call in the relay. Chat ids and usernames
// go through internal/privacy before they are logged.

const (
	// Core identifiers
	LogFieldReference = "reference"
	LogFieldMessageID = "message_id"
	LogFieldChatID    = "chat_id"
	LogFieldUserID    = "user_id"
	LogFieldUpdateID  = "update_id"
	LogFieldRunID     = "run_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldCommand   = "command"

	// Relay fields
	LogFieldPayloadKind = "payload_kind"
	LogFieldDecision    = "decision"
	LogFieldOutcome     = "outcome"
	LogFieldHint        = "hint"
	LogFieldDestination = "destination"

	// HTTP fields
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldMethod     = "method"
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldSize       = "size_bytes"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"

	// Error and debugging
	LogFieldErrorCode = "error_code"
	LogFieldAttempt   = "attempt"
	LogFieldBackoff   = "backoff"
)

// Log level usage
//
// DEBUG: raw update flow, skipped updates, callback data.
// INFO: startup and shutdown, prompts created, decisions and their outcome.
// WARN: best-effort transport calls that failed (keyboard removal, acks),
//   poll failures that will be retried.
// ERROR: failed forwards, storage failures, prompts that could not be sent.
//
// Message patterns: "Starting [operation]", "Failed to [operation]",
// "[Operation] completed".
