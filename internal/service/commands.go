package service

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/models"
	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// Command names understood by the bot
const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandSet    = "set"
	CommandChat   = "chat"
	CommandStatus = "status"
)

// HandleCommand answers a bot command. Unknown commands are ignored.
func (r *Relay) HandleCommand(ctx context.Context, msg *types.Message, command, args string) {
	log := LogWithContext(ctx, r.logger).WithField(LogFieldCommand, command)

	switch command {
	case CommandStart, CommandHelp:
		r.reply(ctx, msg.Chat.ID, helpText)
	case CommandSet:
		r.reply(ctx, msg.Chat.ID, r.setDestination(ctx, args))
	case CommandChat:
		r.reply(ctx, msg.Chat.ID, r.currentDestination(ctx))
	case CommandStatus:
		r.reply(ctx, msg.Chat.ID, r.status(ctx))
	default:
		log.Debug("Ignoring unknown command")
		return
	}
	log.Debug("Handled command")
}

func (r *Relay) setDestination(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return setUsageText
	}

	chatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		r.errLog.LogWarn(apperrors.NewInputError("chat_id", fields[0], "not an integer"), "Rejected /set argument")
		return setNotIntegerText
	}
	if chatID == 0 {
		r.errLog.LogWarn(apperrors.NewInputError("chat_id", fields[0], "zero is not a chat"), "Rejected /set argument")
		return setZeroText
	}

	if err := r.destinations.Set(ctx, chatID); err != nil {
		r.errLog.LogError(err, "Failed to save destination", chatFields(ctx, chatID))
		return setFailedText
	}

	LogWithContext(ctx, r.logger).WithFields(chatFields(ctx, chatID)).Info("Destination updated")
	return fmt.Sprintf(setDoneFormat, chatID)
}

func (r *Relay) currentDestination(ctx context.Context) string {
	chatID, ok := r.destinations.Get(ctx)
	if !ok {
		return chatNotConfiguredText
	}
	return fmt.Sprintf(chatCurrentFormat, chatID)
}

func (r *Relay) status(ctx context.Context) string {
	callCtx, cancel := r.callContext(ctx)
	me, err := r.client.GetMe(callCtx)
	cancel()
	if err != nil {
		r.errLog.LogError(apperrors.NewTransportError("getMe", err), "Failed to get bot identity")
		return fmt.Sprintf(statusFailedFormat, html.EscapeString(err.Error()))
	}

	var b strings.Builder
	b.WriteString("🤖 <b>Bot status</b>\n\n")
	b.WriteString("✅ <b>Running</b>\n")
	fmt.Fprintf(&b, "👤 <b>Bot:</b> @%s\n", html.EscapeString(me.Username))
	fmt.Fprintf(&b, "🆔 <b>Bot ID:</b> %d\n", me.ID)
	b.WriteString("🌐 <b>Web page:</b> running\n")
	fmt.Fprintf(&b, "⏳ <b>Awaiting confirmation:</b> %d\n", r.pending.Len())

	if chatID, ok := r.destinations.Get(ctx); ok {
		fmt.Fprintf(&b, "\n📌 <b>Destination configured:</b> <code>%d</code>", chatID)
	} else {
		b.WriteString("\n📌 <b>Destination not configured</b>")
	}

	if r.journal != nil {
		counts, err := r.journal.CountByStatus(ctx)
		if err != nil {
			r.logger.WithError(err).Warn("Failed to read delivery journal")
		} else {
			fmt.Fprintf(&b, "\n📊 <b>Journal:</b> %d delivered, %d failed, %d cancelled, %d expired",
				counts[models.DeliveryStatusDelivered],
				counts[models.DeliveryStatusFailed],
				counts[models.DeliveryStatusCancelled],
				counts[models.DeliveryStatusExpired])
		}
	}

	r.logger.WithFields(logrus.Fields{LogFieldCommand: CommandStatus}).Debug("Rendered status")
	return b.String()
}
