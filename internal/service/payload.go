package service

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"tgrelay/internal/constants"
	"tgrelay/internal/models"
	"tgrelay/pkg/telegram/types"
)

// Classify turns an inbound message into a tagged payload. Fields are
// inspected in a fixed priority order so a message maps to exactly one kind.
func Classify(msg *types.Message) models.Payload {
	switch {
	case msg.Text != "":
		return models.Payload{Kind: models.KindText, Text: msg.Text}
	case len(msg.Photo) > 0:
		// the last size is the largest
		return mediaPayload(models.KindPhoto, msg.Photo[len(msg.Photo)-1].FileID, msg.Caption)
	case msg.Video != nil:
		return mediaPayload(models.KindVideo, msg.Video.FileID, msg.Caption)
	case msg.Document != nil:
		return mediaPayload(models.KindDocument, msg.Document.FileID, msg.Caption)
	case msg.Audio != nil:
		return mediaPayload(models.KindAudio, msg.Audio.FileID, msg.Caption)
	case msg.Voice != nil:
		return mediaPayload(models.KindVoice, msg.Voice.FileID, msg.Caption)
	case msg.Sticker != nil:
		return models.Payload{Kind: models.KindSticker, FileID: msg.Sticker.FileID}
	default:
		return models.Payload{Kind: models.KindOther, Caption: msg.Caption, ContentType: contentType(msg)}
	}
}

func mediaPayload(kind models.PayloadKind, fileID, caption string) models.Payload {
	return models.Payload{Kind: kind, FileID: fileID, Caption: caption}
}

// contentType names content the relay cannot re-send
func contentType(msg *types.Message) string {
	switch {
	case msg.VideoNote != nil:
		return "video_note"
	case msg.Animation != nil:
		return "animation"
	case msg.Venue != nil:
		return "venue"
	case msg.Location != nil:
		return "location"
	case msg.Contact != nil:
		return "contact"
	case msg.Poll != nil:
		return "poll"
	case msg.Dice != nil:
		return "dice"
	default:
		return "unknown"
	}
}

// SenderFrom captures the sender identity at ingest time
func SenderFrom(user *types.User) models.Sender {
	if user == nil {
		return models.Sender{}
	}
	return models.Sender{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	}
}

// truncate keeps the first max runes, appending "..." when anything was cut
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// Preview renders the body line of a confirmation prompt
func Preview(p models.Payload) string {
	if p.Kind == models.KindText {
		return "📝 " + html.EscapeString(truncate(p.Text, constants.PreviewMaxChars))
	}
	if p.Caption != "" {
		return "📷 " + html.EscapeString(truncate(p.Caption, constants.PreviewMaxChars))
	}
	return kindLabel(p.Kind)
}

func kindLabel(kind models.PayloadKind) string {
	switch kind {
	case models.KindPhoto:
		return "📷 Photo"
	case models.KindVideo:
		return "🎥 Video"
	case models.KindDocument:
		return "📄 Document"
	case models.KindAudio:
		return "🎵 Audio"
	case models.KindVoice:
		return "🎤 Voice message"
	case models.KindSticker:
		return "😀 Sticker"
	default:
		return "📎 Media file"
	}
}

// RenderPrompt builds the full confirmation prompt for an entry
func RenderPrompt(p models.Payload, destination int64) string {
	return promptHeader + Preview(p) + fmt.Sprintf(promptDestination, destination)
}

// Attribution is the header prepended to everything forwarded for a sender
func Attribution(s models.Sender) string {
	return attributionPrefix + html.EscapeString(s.DisplayName())
}

// ForwardText is the text or caption sent to the destination
func ForwardText(entry *models.PendingEntry) string {
	header := Attribution(entry.Sender)
	p := entry.Payload
	switch p.Kind {
	case models.KindText:
		return header + "\n\n" + html.EscapeString(p.Text)
	case models.KindOther:
		return header + "\n\n[Type: " + p.ContentType + "]"
	default:
		if p.Caption == "" {
			return header
		}
		return header + "\n\n" + html.EscapeString(p.Caption)
	}
}

// ClassifyFailure maps known Bot API rejection texts to a remediation hint.
// Anything unrecognized stays HintNone and is reported as a plain transport error.
func ClassifyFailure(message string) models.FailureHint {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "bot was kicked"),
		strings.Contains(lower, "bot is not a member"):
		return models.HintBotKicked
	case strings.Contains(lower, "not enough rights"),
		strings.Contains(lower, "have no rights to send"):
		return models.HintNotEnoughRights
	case strings.Contains(lower, "chat not found"):
		return models.HintChatNotFound
	default:
		return models.HintNone
	}
}

func hintText(hint models.FailureHint) string {
	switch hint {
	case models.HintBotKicked:
		return hintBotKickedText
	case models.HintNotEnoughRights:
		return hintNotEnoughRightsText
	case models.HintChatNotFound:
		return hintChatNotFoundText
	default:
		return ""
	}
}

// FailureText renders the prompt shown after a failed forward
func FailureText(result models.ForwardResult) string {
	if result.Outcome == models.ForwardConfigError {
		return notConfiguredText
	}
	summary := truncateExact(result.Message, constants.ErrorSummaryMaxChars)
	return failedPrefix + html.EscapeString(summary) + hintText(result.Hint)
}

// truncateExact cuts to max runes without an ellipsis
func truncateExact(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// Callback data carried by the prompt buttons: "send_<message id>" and
// "cancel_<message id>". The chat half of the reference is the prompt's chat.

func callbackData(decision models.Decision, messageID int64) string {
	return string(decision) + "_" + strconv.FormatInt(messageID, 10)
}

// ParseCallbackData splits button data into a decision and the original message id
func ParseCallbackData(data string) (models.Decision, int64, bool) {
	action, idStr, found := strings.Cut(data, "_")
	if !found {
		return "", 0, false
	}
	decision := models.Decision(action)
	if decision != models.DecisionApprove && decision != models.DecisionCancel {
		return "", 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return decision, id, true
}

func promptKeyboard(messageID int64) *types.InlineKeyboardMarkup {
	return &types.InlineKeyboardMarkup{
		InlineKeyboard: [][]types.InlineKeyboardButton{{
			{Text: approveButton, CallbackData: callbackData(models.DecisionApprove, messageID)},
			{Text: cancelButton, CallbackData: callbackData(models.DecisionCancel, messageID)},
		}},
	}
}
