package auth

import "github.com/golang-jwt/jwt/v5"

// GenerateTokenRequest トークン生成リクエスト
type GenerateTokenRequest struct {
	Platform string // "twitch" など
	UserID   string // プラットフォーム上のユーザーID
	Username string
}

// GenerateTokenResponse トークン生成レスポンス
type GenerateTokenResponse struct {
	Token     string
	AccountID string
	ExpiresIn int64  // 秒単位
	TokenType string // "Bearer"
}

// Claims 視聴者トークンのクレーム
type Claims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
