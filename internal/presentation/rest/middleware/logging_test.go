package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantLog  string
		wantNone bool
	}{
		{name: "正常系: 通常リクエストはINFO", path: "/api/v1/me/balance", wantLog: "HTTP request completed"},
		{name: "正常系: ヘルスチェックはINFOに出さない", path: "/health", wantNone: true},
		{name: "異常系: ハンドラエラー", path: "/api/v1/me/balance", err: errors.New("boom"), wantLog: "HTTP request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := otelinfra.NewLogger(&buf, otelinfra.LogLevelInfo)

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := LoggingMiddleware(logger)(func(c echo.Context) error {
				if tt.err != nil {
					return tt.err
				}
				return c.String(http.StatusOK, "ok")
			})

			err := handler(c)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}

			if tt.wantNone {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Contains(t, buf.String(), tt.path)
		})
	}
}
