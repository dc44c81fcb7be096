package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "command-server/internal/application/auth"
	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func newAuthService() *authapp.AuthApplicationService {
	return authapp.NewAuthApplicationService(&config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "command-server",
	}, otelinfra.NewNopLogger())
}

func TestAuthMiddleware(t *testing.T) {
	auth := newAuthService()
	issued, err := auth.GenerateToken(context.Background(), &authapp.GenerateTokenRequest{
		Platform: "twitch",
		UserID:   "1001",
		Username: "alice",
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "正常系: 有効なトークン", header: "Bearer " + issued.Token, wantStatus: http.StatusOK},
		{name: "異常系: ヘッダーなし", header: "", wantStatus: http.StatusUnauthorized},
		{name: "異常系: 形式不正", header: "Token " + issued.Token, wantStatus: http.StatusUnauthorized},
		{name: "異常系: トークンなし", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "異常系: 不正なトークン", header: "Bearer invalid-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var gotAccount, gotUsername interface{}
			handler := AuthMiddleware(auth, otelinfra.NewNopLogger())(func(c echo.Context) error {
				gotAccount = c.Get(ContextKeyAccountID)
				gotUsername = c.Get(ContextKeyUsername)
				return c.String(http.StatusOK, "ok")
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, issued.AccountID, gotAccount)
				assert.Equal(t, "alice", gotUsername)
			}
		})
	}
}
