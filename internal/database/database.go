package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/migrations"
	"tgrelay/internal/models"
	"tgrelay/internal/privacy"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type Database struct {
	db        *sql.DB
	encryptor *encryptor
	logger    *logrus.Logger
}

func New(dbPath string, logger *logrus.Logger) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}
	if logger == nil {
		logger = logrus.New()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps SQLite from reporting "database is locked" under load
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, closeWith(db, "failed to ping database", err)
	}

	scripts, err := migrations.All()
	if err != nil {
		return nil, closeWith(db, "failed to read schema", err)
	}
	for _, script := range scripts {
		if _, err := db.Exec(script); err != nil {
			return nil, closeWith(db, "failed to initialize schema", err)
		}
	}

	enc, err := NewEncryptor()
	if err != nil {
		return nil, closeWith(db, "failed to initialize encryptor", err)
	}

	return &Database{db: db, encryptor: enc, logger: logger}, nil
}

func closeWith(db *sql.DB, msg string, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return fmt.Errorf("%s: %w (close error: %v)", msg, err, closeErr)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Get reads the destination from the settings table. Like the file store it
// never fails: errors are logged and read as "not configured".
func (d *Database) Get(ctx context.Context) (int64, bool) {
	var value string
	err := d.db.QueryRowContext(ctx, SelectSettingQuery, settingDestination).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		d.logger.WithError(err).Error("Failed to read destination setting")
		return 0, false
	}

	chatID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		d.logger.WithError(err).WithField("value", value).Error("Destination setting is corrupt")
		return 0, false
	}
	return chatID, true
}

// Set stores the destination in the settings table
func (d *Database) Set(ctx context.Context, chatID int64) error {
	err := retryableDBOperation(ctx, "save destination", func() error {
		_, err := d.db.ExecContext(ctx, UpsertSettingQuery, settingDestination, strconv.FormatInt(chatID, 10))
		return err
	})
	if err != nil {
		d.logger.WithError(err).Error("Failed to save destination setting")
		return apperrors.NewStorageError("write", err)
	}

	d.logger.WithField("chat_id", privacy.MaskChatID(chatID)).Info("Saved destination")
	return nil
}

// RecordDelivery journals the outcome of a resolved entry
func (d *Database) RecordDelivery(ctx context.Context, rec *models.DeliveryRecord) error {
	label, err := d.encryptor.Encrypt(rec.SenderLabel)
	if err != nil {
		return fmt.Errorf("failed to encrypt sender label: %w", err)
	}

	decidedAt := rec.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	return retryableDBOperation(ctx, "record delivery", func() error {
		res, err := d.db.ExecContext(ctx, InsertDeliveryQuery,
			rec.Reference,
			string(rec.PayloadKind),
			rec.DestinationID,
			string(rec.Status),
			rec.ErrorMessage,
			label,
			decidedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			rec.ID = id
		}
		return nil
	})
}

// ListRecentDeliveries returns the newest journal rows first
func (d *Database) ListRecentDeliveries(ctx context.Context, limit int) ([]*models.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.QueryContext(ctx, SelectRecentDeliveriesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var records []*models.DeliveryRecord
	for rows.Next() {
		rec := &models.DeliveryRecord{}
		var kind, status, label string
		if err := rows.Scan(&rec.ID, &rec.Reference, &kind, &rec.DestinationID, &status,
			&rec.ErrorMessage, &label, &rec.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		rec.PayloadKind = models.PayloadKind(kind)
		rec.Status = models.DeliveryStatus(status)

		rec.SenderLabel, err = d.encryptor.Decrypt(label)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt sender label: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByStatus summarizes the journal for the status command
func (d *Database) CountByStatus(ctx context.Context) (map[models.DeliveryStatus]int, error) {
	rows, err := d.db.QueryContext(ctx, CountDeliveriesByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DeliveryStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.DeliveryStatus(status)] = n
	}
	return counts, rows.Err()
}

// CleanupOldRecords removes journal rows older than retentionDays
func (d *Database) CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	var removed int64
	err := retryableDBOperation(ctx, "cleanup deliveries", func() error {
		res, err := d.db.ExecContext(ctx, DeleteOldDeliveriesQuery, cutoff)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}
