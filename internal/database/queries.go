package database

const settingDestination = "chat_id"

// Settings queries
const (
	UpsertSettingQuery = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	SelectSettingQuery = `
		SELECT value FROM settings WHERE key = ?
	`
)

// Delivery journal queries
const (
	InsertDeliveryQuery = `
		INSERT INTO deliveries (
			reference, payload_kind, destination_id, status,
			error_message, sender_label, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	SelectRecentDeliveriesQuery = `
		SELECT id, reference, payload_kind, destination_id, status,
		       error_message, sender_label, decided_at
		FROM deliveries
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`

	CountDeliveriesByStatusQuery = `
		SELECT status, COUNT(*) FROM deliveries GROUP BY status
	`

	DeleteOldDeliveriesQuery = `
		DELETE FROM deliveries WHERE decided_at < ?
	`
)
