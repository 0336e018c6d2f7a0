package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/privacy"

	"github.com/sirupsen/logrus"
)

// destinationRecord is the on-disk format: one object, one field
type destinationRecord struct {
	ChatID *int64 `json:"chat_id"`
}

// DestinationFile keeps the active destination in a single JSON file.
// Writes go to a temp file in the same directory and are renamed over
// the record, so readers never observe a partial write.
type DestinationFile struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

func NewDestinationFile(path string, logger *logrus.Logger) *DestinationFile {
	if logger == nil {
		logger = logrus.New()
	}
	return &DestinationFile{path: path, logger: logger}
}

func (s *DestinationFile) Path() string {
	return s.path
}

// Get returns the configured destination. A missing, unreadable or corrupt
// record reads as "not configured"; the cause is logged.
func (s *DestinationFile) Get(ctx context.Context) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).WithField("path", s.path).Error("Failed to read destination record")
		}
		return 0, false
	}

	var rec destinationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("Destination record is corrupt")
		return 0, false
	}
	if rec.ChatID == nil {
		return 0, false
	}
	return *rec.ChatID, true
}

// Set overwrites the record atomically
func (s *DestinationFile) Set(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(chatID); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("Failed to save destination record")
		return apperrors.NewStorageError("write", err).WithContext("path", s.path)
	}

	s.logger.WithField("chat_id", privacy.MaskChatID(chatID)).Info("Saved destination")
	return nil
}

func (s *DestinationFile) write(chatID int64) error {
	data, err := json.Marshal(destinationRecord{ChatID: &chatID})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chat_config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}
