package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantCSP string
	}{
		{name: "正常系: API", path: "/api/v1/me/balance", wantCSP: apiCSP},
		{name: "正常系: Swagger UI", path: "/swagger/index.html", wantCSP: docsCSP},
		{name: "正常系: ReDoc", path: "/redoc", wantCSP: docsCSP},
		{name: "正常系: オーバーレイは対象外", path: "/ws/overlay", wantCSP: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := SecurityHeadersMiddleware()(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantCSP, rec.Header().Get("Content-Security-Policy"))
			if tt.wantCSP == "" {
				assert.Empty(t, rec.Header().Get("X-Frame-Options"))
				return
			}
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
		})
	}
}
