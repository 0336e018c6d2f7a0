package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"tgrelay/internal/models"
	"tgrelay/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Priority(t *testing.T) {
	file := func(id string) *types.File { return &types.File{FileID: id} }

	tests := []struct {
		name string
		msg  types.Message
		want models.Payload
	}{
		{
			name: "text wins over everything",
			msg:  types.Message{Text: "hi", Photo: []types.PhotoSize{{FileID: "p"}}},
			want: models.Payload{Kind: models.KindText, Text: "hi"},
		},
		{
			name: "photo uses the largest size",
			msg:  types.Message{Caption: "c", Photo: []types.PhotoSize{{FileID: "small"}, {FileID: "large"}}, Document: file("d")},
			want: models.Payload{Kind: models.KindPhoto, FileID: "large", Caption: "c"},
		},
		{
			name: "video before document",
			msg:  types.Message{Video: file("v"), Document: file("d")},
			want: models.Payload{Kind: models.KindVideo, FileID: "v"},
		},
		{
			name: "document before audio",
			msg:  types.Message{Document: file("d"), Audio: file("a")},
			want: models.Payload{Kind: models.KindDocument, FileID: "d"},
		},
		{
			name: "audio before voice",
			msg:  types.Message{Audio: file("a"), Voice: file("vo")},
			want: models.Payload{Kind: models.KindAudio, FileID: "a"},
		},
		{
			name: "voice",
			msg:  types.Message{Voice: file("vo"), Caption: "say"},
			want: models.Payload{Kind: models.KindVoice, FileID: "vo", Caption: "say"},
		},
		{
			name: "sticker drops caption",
			msg:  types.Message{Sticker: file("s")},
			want: models.Payload{Kind: models.KindSticker, FileID: "s"},
		},
		{
			name: "video note is other",
			msg:  types.Message{VideoNote: file("vn")},
			want: models.Payload{Kind: models.KindOther, ContentType: "video_note"},
		},
		{
			name: "venue wins over its location",
			msg:  types.Message{Venue: &types.Venue{Title: "t"}, Location: &types.Location{}},
			want: models.Payload{Kind: models.KindOther, ContentType: "venue"},
		},
		{
			name: "poll",
			msg:  types.Message{Poll: &types.Poll{ID: "1"}},
			want: models.Payload{Kind: models.KindOther, ContentType: "poll"},
		},
		{
			name: "empty message",
			msg:  types.Message{},
			want: models.Payload{Kind: models.KindOther, ContentType: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.msg))
		})
	}
}

func TestPreview_Truncation(t *testing.T) {
	exact := strings.Repeat("a", 150)
	assert.Equal(t, "📝 "+exact, Preview(models.Payload{Kind: models.KindText, Text: exact}))

	long := strings.Repeat("b", 151)
	got := strings.TrimPrefix(Preview(models.Payload{Kind: models.KindText, Text: long}), "📝 ")
	assert.Equal(t, strings.Repeat("b", 150)+"...", got)

	// counted in characters, not bytes
	cyrillic := strings.Repeat("ж", 151)
	got = strings.TrimPrefix(Preview(models.Payload{Kind: models.KindText, Text: cyrillic}), "📝 ")
	assert.Equal(t, 153, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "ж..."))
}

func TestPreview_CaptionAndLabels(t *testing.T) {
	assert.Equal(t, "📷 nice", Preview(models.Payload{Kind: models.KindVideo, Caption: "nice"}))
	assert.Equal(t, "📷 Photo", Preview(models.Payload{Kind: models.KindPhoto}))
	assert.Equal(t, "🎥 Video", Preview(models.Payload{Kind: models.KindVideo}))
	assert.Equal(t, "📄 Document", Preview(models.Payload{Kind: models.KindDocument}))
	assert.Equal(t, "🎵 Audio", Preview(models.Payload{Kind: models.KindAudio}))
	assert.Equal(t, "🎤 Voice message", Preview(models.Payload{Kind: models.KindVoice}))
	assert.Equal(t, "😀 Sticker", Preview(models.Payload{Kind: models.KindSticker}))
	assert.Equal(t, "📎 Media file", Preview(models.Payload{Kind: models.KindOther, ContentType: "poll"}))
	assert.Equal(t, "📝 &lt;b&gt;", Preview(models.Payload{Kind: models.KindText, Text: "<b>"}))
}

func TestRenderPrompt(t *testing.T) {
	prompt := RenderPrompt(models.Payload{Kind: models.KindText, Text: "hello"}, -100123)
	assert.Equal(t, promptHeader+"📝 hello\n\n➡️ <b>Will be sent to chat:</b> <code>-100123</code>", prompt)
}

func TestAttribution(t *testing.T) {
	tests := []struct {
		sender models.Sender
		want   string
	}{
		{models.Sender{FirstName: "Ann"}, "📨 <b>From:</b> Ann"},
		{models.Sender{FirstName: "Ann", LastName: "Lee"}, "📨 <b>From:</b> Ann Lee"},
		{models.Sender{FirstName: "Ann", Username: "ann"}, "📨 <b>From:</b> Ann (@ann)"},
		{models.Sender{FirstName: "Ann", LastName: "Lee", Username: "ann"}, "📨 <b>From:</b> Ann Lee (@ann)"},
		{models.Sender{FirstName: "<A&B>"}, "📨 <b>From:</b> &lt;A&amp;B&gt;"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Attribution(tt.sender))
	}
}

func TestForwardText(t *testing.T) {
	sender := models.Sender{FirstName: "Ann"}
	header := "📨 <b>From:</b> Ann"

	assert.Equal(t, header+"\n\nhello", ForwardText(&models.PendingEntry{Sender: sender, Payload: models.Payload{Kind: models.KindText, Text: "hello"}}))
	assert.Equal(t, header+"\n\n1 &lt; 2", ForwardText(&models.PendingEntry{Sender: sender, Payload: models.Payload{Kind: models.KindText, Text: "1 < 2"}}))
	assert.Equal(t, header, ForwardText(&models.PendingEntry{Sender: sender, Payload: models.Payload{Kind: models.KindPhoto}}))
	assert.Equal(t, header+"\n\n[Type: dice]", ForwardText(&models.PendingEntry{Sender: sender, Payload: models.Payload{Kind: models.KindOther, ContentType: "dice"}}))
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		message string
		want    models.FailureHint
	}{
		{"telegram API error 403: Forbidden: bot was kicked from the group chat", models.HintBotKicked},
		{"telegram API error 403: Forbidden: bot is not a member of the channel chat", models.HintBotKicked},
		{"telegram API error 400: Bad Request: not enough rights to send photos to the chat", models.HintNotEnoughRights},
		{"Bad Request: have no rights to send a message", models.HintNotEnoughRights},
		{"telegram API error 400: Bad Request: chat not found", models.HintChatNotFound},
		{"BOT WAS KICKED", models.HintBotKicked},
		{"telegram API error 429: Too Many Requests: retry after 5", models.HintNone},
		{"", models.HintNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFailure(tt.message), tt.message)
	}
}

func TestFailureText(t *testing.T) {
	long := strings.Repeat("x", 120)
	text := FailureText(models.ForwardResult{Outcome: models.ForwardTransportError, Message: long})
	assert.Equal(t, failedPrefix+strings.Repeat("x", 100), text)

	text = FailureText(models.ForwardResult{
		Outcome: models.ForwardTransportError,
		Message: "Forbidden: bot was kicked <here>",
		Hint:    models.HintBotKicked,
	})
	assert.Equal(t, failedPrefix+"Forbidden: bot was kicked &lt;here&gt;"+hintBotKickedText, text)

	assert.Equal(t, notConfiguredText, FailureText(models.ForwardResult{Outcome: models.ForwardConfigError}))
}

func TestParseCallbackData(t *testing.T) {
	decision, id, ok := ParseCallbackData("send_42")
	assert.True(t, ok)
	assert.Equal(t, models.DecisionApprove, decision)
	assert.Equal(t, int64(42), id)

	decision, id, ok = ParseCallbackData(callbackData(models.DecisionCancel, 7))
	assert.True(t, ok)
	assert.Equal(t, models.DecisionCancel, decision)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "send", "send_", "send_x", "approve_1", "send_1_2"} {
		_, _, ok := ParseCallbackData(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		args    string
		ok      bool
	}{
		{"/start", "start", "", true},
		{"/set -100123", "set", "-100123", true},
		{"/set@relay_bot  -100123 ", "set", "-100123", true},
		{"/SET\n-1", "set", "-1", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		command, args, ok := parseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.command, command, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}
