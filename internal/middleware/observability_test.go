package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tgrelay/internal/metrics"
	"tgrelay/internal/tracing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger, &buf
}

func hasMetric[V any](m map[string]V, name string) bool {
	for key := range m {
		if strings.HasPrefix(key, name) {
			return true
		}
	}
	return false
}

func TestObservabilityMiddleware(t *testing.T) {
	logger, buf := newBufferedLogger()

	handler := ObservabilityMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := tracing.GetRequestInfo(r.Context())
		assert.True(t, strings.HasPrefix(info.RequestID, "req_"))
		assert.False(t, info.StartTime.IsZero())

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	snapshot := metrics.GetAllMetrics()
	assert.True(t, hasMetric(snapshot.Counters, metrics.HTTPRequestsTotal))
	assert.True(t, hasMetric(snapshot.Timers, metrics.HTTPRequestTime))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request completed", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "/health", entry["url"])
	assert.Equal(t, "192.168.1.100", entry["remote_ip"])
	assert.EqualValues(t, 2, entry["size_bytes"])
}

func TestObservabilityMiddleware_ErrorStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusNotFound, "warning"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logger, buf := newBufferedLogger()
			handler := ObservabilityMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

			assert.Equal(t, tt.status, w.Code)
			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.EqualValues(t, tt.status, entry["status_code"])
		})
	}
}

func TestResponseWrapper(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &responseWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusCreated)
	n, err := wrapper.Write([]byte("hello"))
	require.NoError(t, err)
	_, _ = wrapper.Write([]byte(" world"))

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, wrapper.statusCode)
	assert.Equal(t, int64(11), wrapper.responseSize)
	assert.Equal(t, "hello world", rec.Body.String())
}

func TestObservabilityMiddleware_ConcurrentRequests(t *testing.T) {
	logger, _ := newBufferedLogger()
	logger.SetLevel(logrus.ErrorLevel)

	seen := sync.Map{}
	handler := ObservabilityMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(tracing.GetRequestID(r.Context()), true)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	assert.Equal(t, 20, count)
}

func TestDetailedLoggingMiddleware(t *testing.T) {
	logger, buf := newBufferedLogger()
	handler := DetailedLoggingMiddleware(logger, DefaultDetailedLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/metrics?x=1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Accept", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "Detailed request logging")
	assert.Contains(t, out, "***MASKED***")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "application/json")
	assert.Contains(t, out, "/metrics?x=1")
}

func TestDetailedLoggingMiddleware_SkipsHealth(t *testing.T) {
	logger, buf := newBufferedLogger()
	called := false
	handler := DetailedLoggingMiddleware(logger, DefaultDetailedLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, called)
	assert.Empty(t, buf.String())
}

func TestIsSensitiveHeader(t *testing.T) {
	sensitive := DefaultDetailedLoggingConfig().SensitiveHeaders

	assert.True(t, isSensitiveHeader("Authorization", sensitive))
	assert.True(t, isSensitiveHeader("COOKIE", sensitive))
	assert.False(t, isSensitiveHeader("Content-Type", sensitive))
}
