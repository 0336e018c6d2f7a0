package integration_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tgrelay/pkg/telegram/types"
)

// APICall is one request received by the fake Bot API
type APICall struct {
	Method          string
	Body            map[string]interface{}
	ResultMessageID int64
}

// ChatID returns the chat_id field of the call
func (c APICall) ChatID() int64 {
	if v, ok := c.Body["chat_id"].(float64); ok {
		return int64(v)
	}
	return 0
}

func (c APICall) Text() string {
	s, _ := c.Body["text"].(string)
	return s
}

// FakeBotAPI is an in-process stand-in for api.telegram.org. Updates are
// queued by the test and handed out through getUpdates.
type FakeBotAPI struct {
	server *httptest.Server

	mu        sync.Mutex
	updates   []types.Update
	nextID    int64
	nextMsgID int64
	calls     []APICall
	failures  map[int64]string
}

func NewFakeBotAPI(t *testing.T) *FakeBotAPI {
	t.Helper()
	api := &FakeBotAPI{nextID: 1, nextMsgID: 1000, failures: make(map[int64]string)}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (f *FakeBotAPI) URL() string {
	return f.server.URL
}

// FailSendsTo makes every send to chatID fail with description
func (f *FakeBotAPI) FailSendsTo(chatID int64, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[chatID] = description
}

// Enqueue assigns the next update id and queues the update
func (f *FakeBotAPI) Enqueue(update types.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	update.UpdateID = f.nextID
	f.nextID++
	f.updates = append(f.updates, update)
}

// Calls returns a copy of the calls made to method
func (f *FakeBotAPI) Calls(method string) []APICall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []APICall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeBotAPI) handle(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)

	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		writeResult(w, types.User{ID: 42, IsBot: true, FirstName: "Relay", Username: "relay_bot"})
	case "getUpdates":
		var req types.GetUpdatesRequest
		_ = json.Unmarshal(raw, &req)
		writeResult(w, f.waitForUpdates(r, req.Offset))
	case "sendMessage", "sendPhoto", "sendVideo", "sendDocument", "sendAudio", "sendVoice", "sendSticker":
		f.send(w, method, body)
	default:
		f.record(APICall{Method: method, Body: body})
		writeResult(w, true)
	}
}

func (f *FakeBotAPI) send(w http.ResponseWriter, method string, body map[string]interface{}) {
	call := APICall{Method: method, Body: body}

	f.mu.Lock()
	description, fail := f.failures[call.ChatID()]
	if !fail {
		call.ResultMessageID = f.nextMsgID
		f.nextMsgID++
	}
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": false, "error_code": http.StatusForbidden, "description": description,
		})
		return
	}
	writeResult(w, types.Message{
		MessageID: call.ResultMessageID,
		Chat:      types.Chat{ID: call.ChatID()},
		Date:      time.Now().Unix(),
	})
}

func (f *FakeBotAPI) record(call APICall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// waitForUpdates mimics a short long poll
func (f *FakeBotAPI) waitForUpdates(r *http.Request, offset int64) []types.Update {
	deadline := time.After(200 * time.Millisecond)
	for {
		f.mu.Lock()
		var pending []types.Update
		for _, u := range f.updates {
			if u.UpdateID >= offset {
				pending = append(pending, u)
			}
		}
		f.mu.Unlock()

		if len(pending) > 0 {
			return pending
		}
		select {
		case <-r.Context().Done():
			return nil
		case <-deadline:
			return []types.Update{}
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func writeResult(w http.ResponseWriter, result interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}
