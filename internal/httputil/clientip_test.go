package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{name: "single forwarded hop", xff: "203.0.113.5", want: "203.0.113.5"},
		{name: "first forwarded hop wins", xff: "198.51.100.7, 203.0.113.9, 192.0.2.1", want: "198.51.100.7"},
		{name: "forwarded IPv6", xff: "2001:db8::1, 203.0.113.9", want: "2001:db8::1"},
		{name: "forwarded with spaces", xff: "  203.0.113.10  ,  198.51.100.2  ", want: "203.0.113.10"},
		{name: "real ip without forwarded", realIP: "203.0.113.12", want: "203.0.113.12"},
		{name: "forwarded beats real ip", xff: "198.51.100.77", realIP: "203.0.113.200", want: "198.51.100.77"},
		{name: "garbage forwarded falls through", xff: "unknown", realIP: "203.0.113.12", want: "203.0.113.12"},
		{name: "garbage real ip falls through", realIP: "<script>", remoteAddr: "192.0.2.55:54321", want: "192.0.2.55"},
		{name: "remote addr IPv4", remoteAddr: "192.0.2.55:54321", want: "192.0.2.55"},
		{name: "remote addr bracketed IPv6", remoteAddr: "[2001:db8::5]:8443", want: "2001:db8::5"},
		{name: "malformed remote addr returned raw", remoteAddr: "not_an_ip_port", want: "not_an_ip_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
