package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
	DeliveryStatusExpired   DeliveryStatus = "expired"
)

// DeliveryRecord is the journal row written for every resolved entry.
// It holds metadata only; message content is never persisted.
type DeliveryRecord struct {
	ID            int64          `db:"id"`
	Reference     string         `db:"reference"`
	PayloadKind   PayloadKind    `db:"payload_kind"`
	DestinationID int64          `db:"destination_id"`
	Status        DeliveryStatus `db:"status"`
	ErrorMessage  string         `db:"error_message"`
	SenderLabel   string         `db:"sender_label"`
	DecidedAt     time.Time      `db:"decided_at"`
}
