package middleware

import (
	"net/http"
	"strings"

	"tgrelay/internal/httputil"
	"tgrelay/internal/service"
	"tgrelay/internal/tracing"

	"github.com/sirupsen/logrus"
)

// DetailedLoggingConfig controls what gets logged in verbose mode
type DetailedLoggingConfig struct {
	LogRequestHeaders bool
	SensitiveHeaders  []string
	SkipEndpoints     []string
}

func DefaultDetailedLoggingConfig() DetailedLoggingConfig {
	return DetailedLoggingConfig{
		LogRequestHeaders: true,
		SensitiveHeaders: []string{
			"authorization", "cookie", "x-api-key", "x-auth-token",
		},
		SkipEndpoints: []string{"/health"},
	}
}

// DetailedLoggingMiddleware logs request headers at debug level. It runs
// inside ObservabilityMiddleware so the request id is already set.
func DetailedLoggingMiddleware(logger *logrus.Logger, config DetailedLoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range config.SkipEndpoints {
				if r.URL.Path == skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			requestInfo := tracing.GetRequestInfo(r.Context())
			fields := logrus.Fields{
				service.LogFieldRequestID: requestInfo.RequestID,
				service.LogFieldMethod:    r.Method,
				service.LogFieldURL:       r.URL.String(),
				service.LogFieldRemoteIP:  httputil.GetClientIP(r),
				"protocol":                r.Proto,
			}
			if config.LogRequestHeaders {
				fields["request_headers"] = maskHeaders(r.Header, config.SensitiveHeaders)
			}
			logger.WithFields(fields).Debug("Detailed request logging")

			next.ServeHTTP(w, r)
		})
	}
}

func maskHeaders(header http.Header, sensitive []string) map[string]string {
	headers := make(map[string]string, len(header))
	for name, values := range header {
		if isSensitiveHeader(name, sensitive) {
			headers[name] = "***MASKED***"
		} else {
			headers[name] = strings.Join(values, ", ")
		}
	}
	return headers
}

func isSensitiveHeader(headerName string, sensitiveHeaders []string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(sensitive, headerName) {
			return true
		}
	}
	return false
}
