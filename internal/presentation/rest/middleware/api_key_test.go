package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.AdminAPIConfig
		apiKey     string
		remoteAddr string
		wantStatus int
	}{
		{
			name:       "正常系: 正しいキー",
			cfg:        config.AdminAPIConfig{APIKey: "secret"},
			apiKey:     "secret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "正常系: 許可されたCIDR",
			cfg:        config.AdminAPIConfig{APIKey: "secret", AllowedIPs: []string{"10.0.0.0/8"}},
			apiKey:     "secret",
			remoteAddr: "10.1.2.3:5555",
			wantStatus: http.StatusOK,
		},
		{
			name:       "正常系: 許可された単一IP",
			cfg:        config.AdminAPIConfig{APIKey: "secret", AllowedIPs: []string{"192.0.2.10"}},
			apiKey:     "secret",
			remoteAddr: "192.0.2.10:5555",
			wantStatus: http.StatusOK,
		},
		{
			name:       "異常系: キー未設定なら無効",
			cfg:        config.AdminAPIConfig{},
			apiKey:     "secret",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "異常系: ヘッダーなし",
			cfg:        config.AdminAPIConfig{APIKey: "secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "異常系: キー不一致",
			cfg:        config.AdminAPIConfig{APIKey: "secret"},
			apiKey:     "wrong",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "異常系: 許可されていないIP",
			cfg:        config.AdminAPIConfig{APIKey: "secret", AllowedIPs: []string{"10.0.0.0/8"}},
			apiKey:     "secret",
			remoteAddr: "203.0.113.5:5555",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/admin/commands", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := APIKeyMiddleware(&tt.cfg, otelinfra.NewNopLogger())(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
