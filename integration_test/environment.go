package integration_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tgrelay/internal/database"
	"tgrelay/internal/models"
	"tgrelay/internal/service"
	"tgrelay/internal/store"
	"tgrelay/pkg/telegram"
	"tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	operatorID = int64(5001)
	waitFor    = 3 * time.Second
)

// TestEnvironment runs the real client, poller and relay against a fake Bot API
type TestEnvironment struct {
	t         *testing.T
	API       *FakeBotAPI
	Relay     *service.Relay
	DB        *database.Database
	dataDir   string
	poller    *service.UpdatePoller
	messageID int64
	stopOnce  sync.Once
}

// NewTestEnvironment starts a relay whose data lives in dataDir. Passing the
// same dir to a second environment simulates a restart.
func NewTestEnvironment(t *testing.T, dataDir string) *TestEnvironment {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	api := NewFakeBotAPI(t)
	client := telegram.NewClientWithLogger(types.ClientConfig{
		BaseURL: api.URL(),
		Token:   "123456:integration",
		Timeout: 5,
	}, nil, logger)

	db, err := database.New(filepath.Join(dataDir, "tgrelay.db"), logger)
	require.NoError(t, err)

	destinations := store.NewDestinationFile(filepath.Join(dataDir, "chat_config.json"), logger)
	relay := service.NewRelay(client, destinations, store.NewPendingStore(), db, logger)

	poller := service.NewUpdatePoller(client, relay,
		models.TelegramConfig{PollTimeoutSec: 1, HTTPTimeoutSec: 5},
		models.RetryConfig{InitialBackoffMs: 5, MaxBackoffMs: 20, MaxAttempts: 3},
		logger)
	require.NoError(t, poller.Start(context.Background()))

	env := &TestEnvironment{t: t, API: api, Relay: relay, DB: db, dataDir: dataDir, poller: poller, messageID: 100}
	t.Cleanup(env.Stop)
	return env
}

// Stop is safe to call more than once
func (env *TestEnvironment) Stop() {
	env.stopOnce.Do(func() {
		env.poller.Stop()
		_ = env.DB.Close()
	})
}

func (env *TestEnvironment) operatorChat() types.Chat {
	return types.Chat{ID: operatorID, Type: types.ChatTypePrivate}
}

func (env *TestEnvironment) operator() *types.User {
	return &types.User{ID: operatorID, FirstName: "Ann", LastName: "Lee", Username: "annlee"}
}

// SendMessage queues a private message from the operator and returns its id
func (env *TestEnvironment) SendMessage(msg types.Message) int64 {
	env.messageID++
	msg.MessageID = env.messageID
	msg.From = env.operator()
	msg.Chat = env.operatorChat()
	msg.Date = time.Now().Unix()
	env.API.Enqueue(types.Update{Message: &msg})
	return msg.MessageID
}

func (env *TestEnvironment) SendText(text string) int64 {
	return env.SendMessage(types.Message{Text: text})
}

// Press queues a button press on the prompt with promptID
func (env *TestEnvironment) Press(promptID int64, data string) {
	env.API.Enqueue(types.Update{CallbackQuery: &types.CallbackQuery{
		ID:      fmt.Sprintf("cb-%d-%s", promptID, data),
		From:    *env.operator(),
		Message: &types.Message{MessageID: promptID, Chat: env.operatorChat()},
		Data:    data,
	}})
}

// WaitForCalls blocks until method has been called n times
func (env *TestEnvironment) WaitForCalls(method string, n int) []APICall {
	env.t.Helper()
	require.Eventually(env.t, func() bool {
		return len(env.API.Calls(method)) >= n
	}, waitFor, 10*time.Millisecond, "expected %d %s calls", n, method)
	return env.API.Calls(method)
}

// Configure runs /set and waits for the confirmation
func (env *TestEnvironment) Configure(chatID int64) {
	env.t.Helper()
	before := len(env.API.Calls("sendMessage"))
	env.SendText(fmt.Sprintf("/set %d", chatID))
	env.WaitForCalls("sendMessage", before+1)
}

// Prompt sends text and returns the id of the confirmation prompt
func (env *TestEnvironment) Prompt(text string) (sourceID, promptID int64) {
	env.t.Helper()
	before := len(env.API.Calls("sendMessage"))
	sourceID = env.SendText(text)
	calls := env.WaitForCalls("sendMessage", before+1)
	prompt := calls[before]
	require.Contains(env.t, prompt.Text(), "Confirm sending")
	return sourceID, prompt.ResultMessageID
}
