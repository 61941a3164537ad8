package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		config     *IPConfig
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:40312",
			config:     trusted,
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header from trusted proxy",
			remoteAddr: "10.0.0.5:40312",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.5"},
			config:     trusted,
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header from untrusted source is ignored",
			remoteAddr: "203.0.113.9:40312",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			config:     trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "real-ip header from trusted proxy",
			remoteAddr: "10.0.0.5:40312",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			config:     trusted,
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded value falls through to real-ip",
			remoteAddr: "10.0.0.5:40312",
			headers: map[string]string{
				"X-Forwarded-For": "not-an-ip",
				"X-Real-IP":       "203.0.113.7",
			},
			config: trusted,
			want:   "203.0.113.7",
		},
		{
			name:       "no trusted proxies configured",
			remoteAddr: "10.0.0.5:40312",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			config:     &IPConfig{},
			want:       "10.0.0.5",
		},
		{
			name:       "nil config",
			remoteAddr: "10.0.0.5:40312",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			config:     nil,
			want:       "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractClientIP(req, tt.config))
		})
	}
}
