package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"tgrelay/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*Database, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "tgrelay.db")
	db, err := New(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)

	_, err = New("\x00bad", nil)
	assert.Error(t, err)
}

func TestDestination_NotConfigured(t *testing.T) {
	db, _ := setupTestDB(t)

	_, ok := db.Get(context.Background())
	assert.False(t, ok)
}

func TestDestination_SetGetAcrossReopen(t *testing.T) {
	ctx := context.Background()
	db, path := setupTestDB(t)

	require.NoError(t, db.Set(ctx, -100123))
	require.NoError(t, db.Set(ctx, -100456))
	id, ok := db.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(-100456), id)
	require.NoError(t, db.Close())

	reopened, err := New(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	id, ok = reopened.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(-100456), id)
}

func TestDestination_CorruptValueIsAbsent(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)

	_, err := db.db.ExecContext(ctx, UpsertSettingQuery, settingDestination, "not-a-number")
	require.NoError(t, err)

	_, ok := db.Get(ctx)
	assert.False(t, ok)
}

func TestRecordAndListDeliveries(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := &models.DeliveryRecord{
		Reference:     "5:1",
		PayloadKind:   models.KindText,
		DestinationID: -100123,
		Status:        models.DeliveryStatusDelivered,
		SenderLabel:   "Ann (@ann)",
		DecidedAt:     base,
	}
	second := &models.DeliveryRecord{
		Reference:     "5:2",
		PayloadKind:   models.KindPhoto,
		DestinationID: -100123,
		Status:        models.DeliveryStatusFailed,
		ErrorMessage:  "Forbidden: bot was kicked",
		DecidedAt:     base.Add(time.Minute),
	}
	require.NoError(t, db.RecordDelivery(ctx, first))
	require.NoError(t, db.RecordDelivery(ctx, second))
	assert.NotZero(t, first.ID)

	records, err := db.ListRecentDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "5:2", records[0].Reference)
	assert.Equal(t, models.KindPhoto, records[0].PayloadKind)
	assert.Equal(t, models.DeliveryStatusFailed, records[0].Status)
	assert.Equal(t, "Forbidden: bot was kicked", records[0].ErrorMessage)
	assert.Equal(t, "Ann (@ann)", records[1].SenderLabel)
	assert.True(t, base.Equal(records[1].DecidedAt))

	limited, err := db.ListRecentDeliveries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)

	for _, status := range []models.DeliveryStatus{
		models.DeliveryStatusDelivered, models.DeliveryStatusDelivered, models.DeliveryStatusCancelled,
	} {
		require.NoError(t, db.RecordDelivery(ctx, &models.DeliveryRecord{Reference: "r", PayloadKind: models.KindText, Status: status}))
	}

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.DeliveryStatusDelivered])
	assert.Equal(t, 1, counts[models.DeliveryStatusCancelled])
	assert.Equal(t, 0, counts[models.DeliveryStatusFailed])
}

func TestCleanupOldRecords(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)

	now := time.Now().UTC()
	require.NoError(t, db.RecordDelivery(ctx, &models.DeliveryRecord{Reference: "old", PayloadKind: models.KindText, Status: models.DeliveryStatusDelivered, DecidedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, db.RecordDelivery(ctx, &models.DeliveryRecord{Reference: "new", PayloadKind: models.KindText, Status: models.DeliveryStatusDelivered, DecidedAt: now.Add(-time.Hour)}))

	removed, err := db.CleanupOldRecords(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	records, err := db.ListRecentDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Reference)

	removed, err = db.CleanupOldRecords(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSenderLabelEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)

	enc, err := newEncryptorWithSecret("this-is-a-very-long-test-secret-key-for-tests")
	require.NoError(t, err)
	db.encryptor = enc

	require.NoError(t, db.RecordDelivery(ctx, &models.DeliveryRecord{
		Reference: "1:1", PayloadKind: models.KindText, Status: models.DeliveryStatusDelivered, SenderLabel: "Ann Lee",
	}))

	var raw string
	require.NoError(t, db.db.QueryRowContext(ctx, `SELECT sender_label FROM deliveries`).Scan(&raw))
	assert.NotEqual(t, "Ann Lee", raw)

	records, err := db.ListRecentDeliveries(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", records[0].SenderLabel)
}
