package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

func newTestService() *AuthApplicationService {
	return NewAuthApplicationService(&config.JWTConfig{
		Secret:     "test-secret-key",
		Issuer:     "test-issuer",
		Expiration: 24 * time.Hour,
	}, otelinfra.NewNopLogger())
}

func TestAuthApplicationService_GenerateToken(t *testing.T) {
	tests := []struct {
		name      string
		req       *GenerateTokenRequest
		wantError bool
	}{
		{
			name: "正常系: トークンを生成",
			req:  &GenerateTokenRequest{Platform: "twitch", UserID: "123", Username: "alice"},
		},
		{
			name:      "異常系: ユーザーIDが空",
			req:       &GenerateTokenRequest{Platform: "twitch", UserID: "", Username: "alice"},
			wantError: true,
		},
		{
			name:      "異常系: 未知のプラットフォーム",
			req:       &GenerateTokenRequest{Platform: "myspace", UserID: "1", Username: "alice"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			got, err := svc.GenerateToken(context.Background(), tt.req)

			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.Token)
			assert.Equal(t, "twitch.123", got.AccountID)
			assert.Equal(t, int64(86400), got.ExpiresIn)
			assert.Equal(t, "Bearer", got.TokenType)

			claims, err := svc.ParseToken(got.Token)
			require.NoError(t, err)
			assert.Equal(t, "twitch.123", claims.AccountID)
			assert.Equal(t, "alice", claims.Username)
		})
	}
}

func TestAuthApplicationService_ParseToken(t *testing.T) {
	svc := newTestService()
	resp, err := svc.GenerateToken(context.Background(), &GenerateTokenRequest{Platform: "twitch", UserID: "1", Username: "a"})
	require.NoError(t, err)

	t.Run("異常系: 改ざんされたトークン", func(t *testing.T) {
		_, err := svc.ParseToken(resp.Token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 期限切れ", func(t *testing.T) {
		expired := newTestService()
		expired.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		_, err := expired.ParseToken(resp.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 別の発行者", func(t *testing.T) {
		other := NewAuthApplicationService(&config.JWTConfig{
			Secret: "test-secret-key", Issuer: "someone-else", Expiration: time.Hour,
		}, otelinfra.NewNopLogger())
		_, err := other.ParseToken(resp.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
