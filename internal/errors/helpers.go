package errors

import (
	"fmt"
)

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewMissingConfigError reports a required setting that was never provided
func NewMissingConfigError(key string) *AppError {
	return New(ErrCodeMissingConfig, fmt.Sprintf("%s is not configured", key)).
		WithContext("config_key", key).
		WithUserMessage(fmt.Sprintf("%s is not configured", key))
}

// NewInputError creates an error for malformed user input
func NewInputError(field, value, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithContext("value", value).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewStorageError wraps an I/O failure of a durable store
func NewStorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, fmt.Sprintf("storage %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Storage operation failed")
}

// NewStaleReferenceError reports a decision on an unknown or resolved entry
func NewStaleReferenceError(reference string) *AppError {
	return New(ErrCodeStaleReference, "pending entry not found").
		WithContext("reference", reference).
		WithUserMessage("Message expired")
}

// NewTransportError wraps a rejected Bot API call
func NewTransportError(method string, err error) *AppError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("telegram %s failed", method)).
		WithContext("method", method).
		WithUserMessage("Messaging platform rejected the request")
}
