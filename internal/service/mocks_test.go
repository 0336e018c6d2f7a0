package service

import (
	"context"
	"io"
	"sync"

	"tgrelay/internal/models"
	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// mockTelegramClient is a testify mock of the Bot API client
type mockTelegramClient struct {
	mock.Mock
}

func (m *mockTelegramClient) GetMe(ctx context.Context) (*types.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockTelegramClient) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]types.Update, error) {
	args := m.Called(ctx, offset, timeoutSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Update), args.Error(1)
}

func (m *mockTelegramClient) SendMessage(ctx context.Context, chatID int64, text string, markup *types.InlineKeyboardMarkup) (*types.Message, error) {
	args := m.Called(ctx, chatID, text, markup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Message), args.Error(1)
}

func (m *mockTelegramClient) sendMedia(ctx context.Context, method string, chatID int64, fileID, caption string) (*types.Message, error) {
	args := m.MethodCalled(method, ctx, chatID, fileID, caption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Message), args.Error(1)
}

func (m *mockTelegramClient) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return m.sendMedia(ctx, "SendPhoto", chatID, fileID, caption)
}

func (m *mockTelegramClient) SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return m.sendMedia(ctx, "SendVideo", chatID, fileID, caption)
}

func (m *mockTelegramClient) SendDocument(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return m.sendMedia(ctx, "SendDocument", chatID, fileID, caption)
}

func (m *mockTelegramClient) SendAudio(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return m.sendMedia(ctx, "SendAudio", chatID, fileID, caption)
}

func (m *mockTelegramClient) SendVoice(ctx context.Context, chatID int64, fileID, caption string) (*types.Message, error) {
	return m.sendMedia(ctx, "SendVoice", chatID, fileID, caption)
}

func (m *mockTelegramClient) SendSticker(ctx context.Context, chatID int64, fileID string) (*types.Message, error) {
	args := m.Called(ctx, chatID, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Message), args.Error(1)
}

func (m *mockTelegramClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	args := m.Called(ctx, chatID, messageID, text)
	return args.Error(0)
}

func (m *mockTelegramClient) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *types.InlineKeyboardMarkup) error {
	args := m.Called(ctx, chatID, messageID, markup)
	return args.Error(0)
}

func (m *mockTelegramClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	args := m.Called(ctx, callbackID, text)
	return args.Error(0)
}

// fakeDestinations is an in-memory DestinationStore
type fakeDestinations struct {
	mu     sync.Mutex
	chatID int64
	set    bool
	setErr error
}

func (f *fakeDestinations) Get(ctx context.Context) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatID, f.set
}

func (f *fakeDestinations) Set(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.chatID, f.set = chatID, true
	return nil
}

// mockJournal is a testify mock of the delivery journal
type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) RecordDelivery(ctx context.Context, rec *models.DeliveryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockJournal) CountByStatus(ctx context.Context) (map[models.DeliveryStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.DeliveryStatus]int), args.Error(1)
}

func (m *mockJournal) CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
