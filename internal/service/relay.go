package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tgrelay/internal/constants"
	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/metrics"
	"tgrelay/internal/models"
	"tgrelay/internal/store"
	"tgrelay/internal/tracing"
	"tgrelay/pkg/telegram"
	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// DestinationStore holds the single active destination chat.
// Get never fails: unreadable state reads as not configured.
type DestinationStore interface {
	Get(ctx context.Context) (int64, bool)
	Set(ctx context.Context, chatID int64) error
}

// DeliveryJournal records resolved entries. It is optional.
type DeliveryJournal interface {
	RecordDelivery(ctx context.Context, rec *models.DeliveryRecord) error
	CountByStatus(ctx context.Context) (map[models.DeliveryStatus]int, error)
}

// Relay is the confirmation state machine. Inbound private messages become
// pending entries with an approve/cancel prompt; an approve forwards the
// entry to the current destination exactly once.
type Relay struct {
	client       telegram.Client
	destinations DestinationStore
	pending      *store.PendingStore
	journal      DeliveryJournal
	logger       *logrus.Logger
	errLog       *apperrors.Logger
	metrics      *metrics.Registry
	callTimeout  time.Duration
	now          func() time.Time
}

// NewRelay wires the engine. journal may be nil.
func NewRelay(client telegram.Client, destinations DestinationStore, pending *store.PendingStore, journal DeliveryJournal, logger *logrus.Logger) *Relay {
	if logger == nil {
		logger = logrus.New()
	}
	return &Relay{
		client:       client,
		destinations: destinations,
		pending:      pending,
		journal:      journal,
		logger:       logger,
		errLog:       apperrors.NewLogger(logger),
		metrics:      metrics.GetRegistry(),
		callTimeout:  time.Duration(constants.DefaultHTTPTimeoutSec) * time.Second,
		now:          time.Now,
	}
}

// SetCallTimeout bounds each Bot API and storage call made while handling
// an update. Zero leaves calls unbounded.
func (r *Relay) SetCallTimeout(d time.Duration) {
	r.callTimeout = d
}

// callContext gives one call its own budget, detached from the caller's
// cancellation so a slow earlier step cannot starve a later one.
func (r *Relay) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if r.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

// Pending exposes the store for housekeeping
func (r *Relay) Pending() *store.PendingStore {
	return r.pending
}

// HandleUpdate routes one update from the poller
func (r *Relay) HandleUpdate(ctx context.Context, update types.Update) {
	r.metrics.IncrementCounter(metrics.UpdatesReceived, nil, "Updates received from the Bot API")

	ctx = tracing.WithRequestTracing(ctx)
	switch {
	case update.CallbackQuery != nil:
		r.Decide(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.HandleMessage(ctx, update.Message)
	default:
		r.logger.WithField(LogFieldUpdateID, update.UpdateID).Debug("Skipping update without message or callback")
	}
}

// HandleMessage answers commands in any chat and ingests other private messages
func (r *Relay) HandleMessage(ctx context.Context, msg *types.Message) {
	if strings.HasPrefix(msg.Text, "/") {
		if command, args, ok := parseCommand(msg.Text); ok {
			r.HandleCommand(ctx, msg, command, args)
		}
		return
	}
	if msg.Chat.Type != types.ChatTypePrivate {
		return
	}
	r.Ingest(ctx, msg)
}

// Ingest creates a pending entry for msg and shows the confirmation prompt.
// Without a destination it only replies with a notice.
func (r *Relay) Ingest(ctx context.Context, msg *types.Message) {
	ctx, span := tracing.WithOtelTracing(ctx, "relay.ingest")
	defer span.End()

	ref := models.Reference{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	log := LogWithContext(ctx, r.logger).WithFields(chatFields(ctx, ref.ChatID)).WithField(LogFieldMessageID, ref.MessageID)

	destination, ok := r.destinations.Get(ctx)
	if !ok {
		log.Info("Destination not configured, refusing message")
		r.reply(ctx, msg.Chat.ID, notConfiguredText)
		return
	}

	entry := &models.PendingEntry{
		Payload: Classify(msg),
		Sender:  SenderFrom(msg.From),
	}
	tracing.AddSpanAttributes(ctx, attribute.String(LogFieldPayloadKind, string(entry.Payload.Kind)))

	// updates are handled serially, so no decision can race the prompt
	callCtx, cancel := r.callContext(ctx)
	prompt, err := r.client.SendMessage(callCtx, msg.Chat.ID, RenderPrompt(entry.Payload, destination), promptKeyboard(msg.MessageID))
	cancel()
	if err != nil {
		tracing.RecordError(ctx, err)
		r.errLog.LogError(apperrors.NewTransportError("sendMessage", err), "Failed to send confirmation prompt",
			logrus.Fields{LogFieldReference: ref.String()})
		return
	}
	if prompt != nil {
		entry.PromptMessageID = prompt.MessageID
	}
	r.pending.Create(ref, entry)

	r.metrics.IncrementCounter(metrics.PromptsCreated, map[string]string{"kind": string(entry.Payload.Kind)}, "Confirmation prompts created")
	r.metrics.SetGauge(metrics.PendingEntries, float64(r.pending.Len()), nil, "Entries awaiting a decision")
	log.WithField(LogFieldPayloadKind, entry.Payload.Kind).Info("Created pending entry")
}

// Decide applies an operator's button press. Every path ends with an
// acknowledgement and no entry left behind for the reference.
func (r *Relay) Decide(ctx context.Context, cb *types.CallbackQuery) {
	ctx, span := tracing.WithOtelTracing(ctx, "relay.decide")
	defer span.End()

	log := LogWithContext(ctx, r.logger)
	prompt := cb.Message
	if prompt == nil {
		// the prompt is too old for the Bot API to attach
		r.ack(ctx, cb.ID, ackExpired)
		return
	}

	callCtx, cancel := r.callContext(ctx)
	if err := r.client.EditMessageReplyMarkup(callCtx, prompt.Chat.ID, prompt.MessageID, nil); err != nil {
		log.WithError(err).Warn("Failed to remove prompt buttons")
	}
	cancel()

	decision, messageID, ok := ParseCallbackData(cb.Data)
	if !ok {
		log.WithField("data", cb.Data).Debug("Unrecognized callback data")
		r.metrics.IncrementCounter(metrics.DecisionsTotal, map[string]string{"decision": "unknown"}, "Operator decisions")
		r.ack(ctx, cb.ID, ackExpired)
		return
	}

	ref := models.Reference{ChatID: prompt.Chat.ID, MessageID: messageID}
	tracing.AddSpanAttributes(ctx,
		attribute.String(LogFieldDecision, string(decision)),
		attribute.String(LogFieldReference, ref.String()),
	)
	r.metrics.IncrementCounter(metrics.DecisionsTotal, map[string]string{"decision": string(decision)}, "Operator decisions")

	switch decision {
	case models.DecisionCancel:
		r.cancel(ctx, cb, ref)
	case models.DecisionApprove:
		r.approve(ctx, cb, ref)
	}
	r.metrics.SetGauge(metrics.PendingEntries, float64(r.pending.Len()), nil, "Entries awaiting a decision")
}

func (r *Relay) cancel(ctx context.Context, cb *types.CallbackQuery, ref models.Reference) {
	r.edit(ctx, cb.Message, cancelledText)

	if entry, ok := r.pending.Take(ref); ok {
		r.record(ctx, entry, models.DeliveryStatusCancelled, 0, "")
	}
	LogWithContext(ctx, r.logger).WithField(LogFieldReference, ref.String()).Info("Pending entry cancelled")
	r.ack(ctx, cb.ID, ackCancelled)
}

func (r *Relay) approve(ctx context.Context, cb *types.CallbackQuery, ref models.Reference) {
	log := LogWithContext(ctx, r.logger).WithField(LogFieldReference, ref.String())

	// Take claims the entry; a second approve on the same reference finds nothing
	entry, ok := r.pending.Take(ref)
	if !ok {
		stale := apperrors.NewStaleReferenceError(ref.String())
		log.WithField(LogFieldErrorCode, stale.Code).Info("Approve on stale reference")
		r.edit(ctx, cb.Message, expiredText)
		r.ack(ctx, cb.ID, apperrors.GetUserMessage(stale))
		return
	}

	r.edit(ctx, cb.Message, sendingText)

	result := r.Forward(ctx, entry)
	log = log.WithFields(logrus.Fields{
		LogFieldOutcome:     result.Outcome.String(),
		LogFieldPayloadKind: entry.Payload.Kind,
	})

	if result.Outcome == models.ForwardDelivered {
		log.Info("Forwarded pending entry")
		r.edit(ctx, cb.Message, deliveredText)
		r.ack(ctx, cb.ID, ackDelivered)
		r.record(ctx, entry, models.DeliveryStatusDelivered, result.Destination, "")
		return
	}

	log.WithField(LogFieldHint, int(result.Hint)).WithField("error", result.Message).Error("Failed to forward pending entry")
	r.edit(ctx, cb.Message, FailureText(result))
	r.ack(ctx, cb.ID, ackFailed)
	r.record(ctx, entry, models.DeliveryStatusFailed, result.Destination, result.Message)
}

// Expire closes the prompt of an entry the scheduler dropped for age
func (r *Relay) Expire(ctx context.Context, entry *models.PendingEntry) {
	if entry.PromptMessageID != 0 {
		// editing the text without a keyboard also removes the buttons
		callCtx, cancel := r.callContext(ctx)
		if err := r.client.EditMessageText(callCtx, entry.Reference.ChatID, entry.PromptMessageID, expiredText); err != nil {
			LogWithContext(ctx, r.logger).WithError(err).Warn("Failed to update expired prompt")
		}
		cancel()
	}
	r.metrics.IncrementCounter(metrics.ExpiredEntries, nil, "Pending entries dropped for age")
	r.record(ctx, entry, models.DeliveryStatusExpired, 0, "")
}

// Forward re-sends the entry to the destination configured right now.
// It never returns an error; failures are described by the result.
func (r *Relay) Forward(ctx context.Context, entry *models.PendingEntry) models.ForwardResult {
	ctx, span := tracing.WithOtelTracing(ctx, "relay.forward",
		attribute.String(LogFieldPayloadKind, string(entry.Payload.Kind)))
	defer span.End()

	destination, ok := r.destinations.Get(ctx)
	if !ok {
		err := apperrors.NewMissingConfigError("destination")
		tracing.RecordError(ctx, err)
		r.countForward(models.ForwardConfigError)
		return models.ForwardResult{Outcome: models.ForwardConfigError, Message: err.Error()}
	}

	// the forward is never cancelled from outside; the transport timeout bounds it
	start := time.Now()
	err := r.send(context.WithoutCancel(ctx), destination, entry)
	r.metrics.RecordTimer(metrics.ForwardLatency, time.Since(start), map[string]string{"kind": string(entry.Payload.Kind)}, "Forward call latency")

	if err != nil {
		tracing.RecordError(ctx, err)
		r.countForward(models.ForwardTransportError)
		return models.ForwardResult{
			Outcome:     models.ForwardTransportError,
			Destination: destination,
			Message:     err.Error(),
			Hint:        ClassifyFailure(err.Error()),
		}
	}

	r.countForward(models.ForwardDelivered)
	return models.ForwardResult{Outcome: models.ForwardDelivered, Destination: destination}
}

func (r *Relay) send(ctx context.Context, destination int64, entry *models.PendingEntry) error {
	p := entry.Payload
	if p.Kind.HasFile() && p.FileID == "" {
		return fmt.Errorf("%s payload has no file id", p.Kind)
	}
	text := ForwardText(entry)

	var err error
	switch p.Kind {
	case models.KindText, models.KindOther:
		_, err = r.client.SendMessage(ctx, destination, text, nil)
	case models.KindPhoto:
		_, err = r.client.SendPhoto(ctx, destination, p.FileID, text)
	case models.KindVideo:
		_, err = r.client.SendVideo(ctx, destination, p.FileID, text)
	case models.KindDocument:
		_, err = r.client.SendDocument(ctx, destination, p.FileID, text)
	case models.KindAudio:
		_, err = r.client.SendAudio(ctx, destination, p.FileID, text)
	case models.KindVoice:
		_, err = r.client.SendVoice(ctx, destination, p.FileID, text)
	case models.KindSticker:
		// stickers cannot carry a caption, so the attribution is dropped
		_, err = r.client.SendSticker(ctx, destination, p.FileID)
	default:
		err = fmt.Errorf("unsupported payload kind %q", p.Kind)
	}
	return err
}

func (r *Relay) countForward(outcome models.ForwardOutcome) {
	r.metrics.IncrementCounter(metrics.ForwardsTotal, map[string]string{"outcome": outcome.String()}, "Forward attempts by outcome")
}

// record journals a resolved entry when a journal is configured
func (r *Relay) record(ctx context.Context, entry *models.PendingEntry, status models.DeliveryStatus, destination int64, errMsg string) {
	if r.journal == nil {
		return
	}
	rec := &models.DeliveryRecord{
		Reference:     entry.Reference.String(),
		PayloadKind:   entry.Payload.Kind,
		DestinationID: destination,
		Status:        status,
		ErrorMessage:  errMsg,
		SenderLabel:   entry.Sender.DisplayName(),
		DecidedAt:     r.now(),
	}
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	if err := r.journal.RecordDelivery(callCtx, rec); err != nil {
		r.errLog.LogError(apperrors.NewStorageError("journal", err), "Failed to journal decision",
			logrus.Fields{LogFieldReference: rec.Reference})
	}
}

func (r *Relay) reply(ctx context.Context, chatID int64, text string) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	if _, err := r.client.SendMessage(callCtx, chatID, text, nil); err != nil {
		LogWithContext(ctx, r.logger).WithFields(chatFields(ctx, chatID)).WithError(err).Warn("Failed to send reply")
	}
}

func (r *Relay) edit(ctx context.Context, prompt *types.Message, text string) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	if err := r.client.EditMessageText(callCtx, prompt.Chat.ID, prompt.MessageID, text); err != nil {
		LogWithContext(ctx, r.logger).WithError(err).Warn("Failed to update prompt")
	}
}

func (r *Relay) ack(ctx context.Context, callbackID, text string) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	if err := r.client.AnswerCallbackQuery(callCtx, callbackID, text); err != nil {
		LogWithContext(ctx, r.logger).WithError(err).Warn("Failed to answer callback query")
	}
}

// parseCommand recognizes "/name args" and "/name@bot args"
func parseCommand(text string) (command, args string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", "", false
	}
	command, _, _ = strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	if command == "" {
		return "", "", false
	}
	return strings.ToLower(command), strings.Join(fields[1:], " "), true
}
