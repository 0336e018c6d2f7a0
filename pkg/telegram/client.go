package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.telegram.org"

// Client is the subset of the Telegram Bot API the relay talks to.
type Client interface {
	GetMe(ctx context.Context) (*types.User, error)
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]types.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *types.InlineKeyboardMarkup) (*types.Message, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error)
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error)
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error)
	SendAudio(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error)
	SendVoice(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error)
	SendSticker(ctx context.Context, chatID int64, fileID string) (*types.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *types.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.Code, e.Description)
}

type BotClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logrus.Logger
}

func NewClient(config types.ClientConfig) Client {
	return NewClientWithLogger(config, nil, nil)
}

func NewClientWithLogger(config types.ClientConfig, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		timeout := time.Duration(config.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second // must outlive the long-poll timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &BotClient{
		baseURL: baseURL,
		token:   config.Token,
		client:  httpClient,
		logger:  logger,
	}
}

func (c *BotClient) GetMe(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *BotClient) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]types.Update, error) {
	req := types.GetUpdatesRequest{
		Offset:         offset,
		Timeout:        timeoutSeconds,
		AllowedUpdates: []string{"message", "callback_query"},
	}

	var updates []types.Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string, markup *types.InlineKeyboardMarkup) (*types.Message, error) {
	req := types.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   types.ParseModeHTML,
		ReplyMarkup: markup,
	}

	var msg types.Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *BotClient) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendPhoto", "photo", chatID, fileID, caption)
}

func (c *BotClient) SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendVideo", "video", chatID, fileID, caption)
}

func (c *BotClient) SendDocument(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendDocument", "document", chatID, fileID, caption)
}

func (c *BotClient) SendAudio(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendAudio", "audio", chatID, fileID, caption)
}

func (c *BotClient) SendVoice(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendVoice", "voice", chatID, fileID, caption)
}

// SendSticker has no caption; the Bot API rejects one for stickers.
func (c *BotClient) SendSticker(ctx context.Context, chatID int64, fileID string) (*types.Message, error) {
	return c.sendMedia(ctx, "sendSticker", "sticker", chatID, fileID, "")
}

func (c *BotClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	req := types.EditMessageTextRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: types.ParseModeHTML,
	}
	return c.call(ctx, "editMessageText", req, nil)
}

func (c *BotClient) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *types.InlineKeyboardMarkup) error {
	if markup == nil {
		markup = types.EmptyKeyboard()
	}
	req := types.EditMessageReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}
	return c.call(ctx, "editMessageReplyMarkup", req, nil)
}

func (c *BotClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	req := types.AnswerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}
	return c.call(ctx, "answerCallbackQuery", req, nil)
}

func (c *BotClient) sendMedia(ctx context.Context, method, field string, chatID int64, fileID, caption string) (*types.Message, error) {
	// file ids are re-sent by reference, so a flat JSON body is enough
	body := map[string]interface{}{
		"chat_id": chatID,
		field:     fileID,
	}
	if caption != "" {
		body["caption"] = caption
		body["parse_mode"] = types.ParseModeHTML
	}

	var msg types.Message
	if err := c.call(ctx, method, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *BotClient) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("method", method).Debug("Sending Telegram API request")

	resp, err := c.client.Do(req)
	if err != nil {
		// the transport error embeds the URL, which carries the token
		return fmt.Errorf("failed to send %s request: %s", method, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp types.APIResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return fmt.Errorf("failed to decode %s response (status %d): %w", method, resp.StatusCode, err)
	}

	if !apiResp.OK {
		c.logger.WithFields(logrus.Fields{
			"method":      method,
			"status":      resp.StatusCode,
			"error_code":  apiResp.ErrorCode,
			"description": apiResp.Description,
		}).Debug("Telegram API returned error")
		return &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	}

	if result == nil || len(apiResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(apiResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *BotClient) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "<redacted>")
}
