package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tgrelay/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:test-token"

func setupTestServer(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(types.ClientConfig{BaseURL: server.URL, Token: testToken, Timeout: 5})
	return client, server
}

func writeOK(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(types.APIResponse{OK: true, Result: raw}))
}

func TestGetMe(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/getMe", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		writeOK(t, w, types.User{ID: 42, IsBot: true, FirstName: "Relay", Username: "relay_bot"})
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), me.ID)
	assert.Equal(t, "relay_bot", me.Username)
}

func TestGetUpdates(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.GetUpdatesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(7), req.Offset)
		assert.Equal(t, 25, req.Timeout)
		assert.Equal(t, []string{"message", "callback_query"}, req.AllowedUpdates)

		writeOK(t, w, []types.Update{
			{UpdateID: 7, Message: &types.Message{MessageID: 1, Text: "hello", Chat: types.Chat{ID: 5, Type: types.ChatTypePrivate}}},
			{UpdateID: 8, CallbackQuery: &types.CallbackQuery{ID: "cb", Data: "send_1"}},
		})
	})

	updates, err := client.GetUpdates(context.Background(), 7, 25)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "hello", updates[0].Message.Text)
	assert.Equal(t, "send_1", updates[1].CallbackQuery.Data)
}

func TestSendMessage_WithKeyboard(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req types.SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(-100123), req.ChatID)
		assert.Equal(t, "hi", req.Text)
		assert.Equal(t, types.ParseModeHTML, req.ParseMode)
		require.NotNil(t, req.ReplyMarkup)
		assert.Equal(t, "send_1", req.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

		writeOK(t, w, types.Message{MessageID: 99, Chat: types.Chat{ID: -100123}})
	})

	markup := &types.InlineKeyboardMarkup{InlineKeyboard: [][]types.InlineKeyboardButton{{{Text: "ok", CallbackData: "send_1"}}}}
	msg, err := client.SendMessage(context.Background(), -100123, "hi", markup)
	require.NoError(t, err)
	assert.Equal(t, int64(99), msg.MessageID)
}

func TestSendMedia_UsesMethodField(t *testing.T) {
	tests := []struct {
		name   string
		method string
		field  string
		send   func(c Client) (*types.Message, error)
	}{
		{"photo", "sendPhoto", "photo", func(c Client) (*types.Message, error) { return c.SendPhoto(context.Background(), 1, "F", "cap") }},
		{"video", "sendVideo", "video", func(c Client) (*types.Message, error) { return c.SendVideo(context.Background(), 1, "F", "cap") }},
		{"document", "sendDocument", "document", func(c Client) (*types.Message, error) { return c.SendDocument(context.Background(), 1, "F", "cap") }},
		{"audio", "sendAudio", "audio", func(c Client) (*types.Message, error) { return c.SendAudio(context.Background(), 1, "F", "cap") }},
		{"voice", "sendVoice", "voice", func(c Client) (*types.Message, error) { return c.SendVoice(context.Background(), 1, "F", "cap") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasSuffix(r.URL.Path, "/"+tt.method))
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "F", body[tt.field])
				assert.Equal(t, "cap", body["caption"])
				assert.Equal(t, types.ParseModeHTML, body["parse_mode"])
				writeOK(t, w, types.Message{MessageID: 3})
			})

			msg, err := tt.send(client)
			require.NoError(t, err)
			assert.Equal(t, int64(3), msg.MessageID)
		})
	}
}

func TestSendSticker_NoCaption(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "STK", body["sticker"])
		_, hasCaption := body["caption"]
		assert.False(t, hasCaption)
		writeOK(t, w, types.Message{MessageID: 4})
	})

	_, err := client.SendSticker(context.Background(), 1, "STK")
	require.NoError(t, err)
}

func TestEditMessageReplyMarkup_NilClearsKeyboard(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.EditMessageReplyMarkupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ReplyMarkup)
		assert.Empty(t, req.ReplyMarkup.InlineKeyboard)
		writeOK(t, w, true)
	})

	require.NoError(t, client.EditMessageReplyMarkup(context.Background(), 1, 2, nil))
}

func TestEditMessageTextAndAnswerCallback(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		mu.Unlock()
		writeOK(t, w, true)
	})

	require.NoError(t, client.EditMessageText(context.Background(), 1, 2, "done"))
	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb-1", "ok"))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"editMessageText", "answerCallbackQuery"}, methods)
}

func TestAPIError(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(types.APIResponse{
			OK:          false,
			ErrorCode:   403,
			Description: "Forbidden: bot was kicked from the supergroup chat",
		})
	})

	_, err := client.SendMessage(context.Background(), -100123, "hi", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Contains(t, err.Error(), "bot was kicked")
}

func TestTransportError_RedactsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(types.ClientConfig{BaseURL: url, Token: testToken, Timeout: 1})
	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestMalformedResponse(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode getMe response")
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient(types.ClientConfig{Token: "t"}).(*BotClient)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.logger)

	c = NewClient(types.ClientConfig{BaseURL: "http://example.com/", Token: "t"}).(*BotClient)
	assert.Equal(t, "http://example.com", c.baseURL)
}
