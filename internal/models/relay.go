package models

import (
	"fmt"
	"time"
)

// PayloadKind tags what an inbound message carries
type PayloadKind string

const (
	KindText     PayloadKind = "text"
	KindPhoto    PayloadKind = "photo"
	KindVideo    PayloadKind = "video"
	KindDocument PayloadKind = "document"
	KindAudio    PayloadKind = "audio"
	KindVoice    PayloadKind = "voice"
	KindSticker  PayloadKind = "sticker"
	KindOther    PayloadKind = "other"
)

// HasFile reports whether the kind is re-sent by file handle
func (k PayloadKind) HasFile() bool {
	switch k {
	case KindPhoto, KindVideo, KindDocument, KindAudio, KindVoice, KindSticker:
		return true
	}
	return false
}

// Payload is the transport handle needed to re-send a message.
// Text is set for KindText, FileID (plus optional Caption) for media kinds,
// and ContentType names the unsupported content for KindOther.
type Payload struct {
	Kind        PayloadKind
	Text        string
	FileID      string
	Caption     string
	ContentType string
}

// Sender is the identity captured when the entry is created
type Sender struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName renders "First Last (@handle)" with optional parts omitted
func (s Sender) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		name += " " + s.LastName
	}
	if s.Username != "" {
		name += " (@" + s.Username + ")"
	}
	return name
}

// Reference identifies an inbound message. Telegram message ids are only
// unique within a chat, so the chat is part of the key.
type Reference struct {
	ChatID    int64
	MessageID int64
}

func (r Reference) String() string {
	return fmt.Sprintf("%d:%d", r.ChatID, r.MessageID)
}

// PendingEntry is an inbound message awaiting approve/cancel.
// PromptMessageID is the confirmation prompt shown for it, in Reference.ChatID.
type PendingEntry struct {
	Reference       Reference
	Payload         Payload
	Sender          Sender
	PromptMessageID int64
	CreatedAt       time.Time
}

// Decision is the operator's choice on a confirmation prompt
type Decision string

const (
	DecisionApprove Decision = "send"
	DecisionCancel  Decision = "cancel"
)

// ForwardOutcome classifies the result of a forward attempt
type ForwardOutcome int

const (
	ForwardDelivered ForwardOutcome = iota
	ForwardTransportError
	ForwardConfigError
)

func (o ForwardOutcome) String() string {
	switch o {
	case ForwardDelivered:
		return "delivered"
	case ForwardTransportError:
		return "transport_error"
	case ForwardConfigError:
		return "config_error"
	default:
		return "unknown"
	}
}

// FailureHint is a best-effort remediation hint for a rejected forward
type FailureHint int

const (
	HintNone FailureHint = iota
	HintBotKicked
	HintNotEnoughRights
	HintChatNotFound
)

// ForwardResult is what a forward attempt returns instead of an error
type ForwardResult struct {
	Outcome     ForwardOutcome
	Destination int64
	Message     string
	Hint        FailureHint
}
