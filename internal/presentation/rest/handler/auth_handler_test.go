package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "command-server/internal/application/auth"
	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func TestAuthHandler_GenerateToken(t *testing.T) {
	authService := authapp.NewAuthApplicationService(&config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "command-server",
	}, otelinfra.NewNopLogger())
	h := NewAuthHandler(authService)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedID     string
	}{
		{name: "正常系: トークン発行", body: `{"platform":"twitch","user_id":"1001","username":"alice"}`, expectedStatus: http.StatusOK, expectedID: "twitch.1001"},
		{name: "正常系: ユーザー名省略", body: `{"platform":"youtube","user_id":"UC42"}`, expectedStatus: http.StatusOK, expectedID: "youtube.UC42"},
		{name: "異常系: user_idなし", body: `{"platform":"twitch"}`, expectedStatus: http.StatusBadRequest},
		{name: "異常系: 不正なJSON", body: `{`, expectedStatus: http.StatusBadRequest},
		{name: "異常系: 不正なプラットフォーム", body: `{"platform":"myspace","user_id":"1"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/admin/tokens", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			serve(t, h.GenerateToken, c)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedID == "" {
				return
			}

			var body GenerateTokenResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedID, body.AccountID)
			assert.Equal(t, "Bearer", body.TokenType)
			assert.Equal(t, int64(3600), body.ExpiresIn)

			claims, err := authService.ParseToken(body.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, claims.AccountID)
		})
	}
}
