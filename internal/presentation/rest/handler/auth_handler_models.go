package handler

// GenerateTokenRequest トークン生成リクエスト
// @Description トークン生成リクエスト
type GenerateTokenRequest struct {
	Platform string `json:"platform" example:"twitch"`
	UserID   string `json:"user_id" example:"1001"`
	Username string `json:"username" example:"alice"`
}

// GenerateTokenResponse トークン生成レスポンス
// @Description トークン生成レスポンス
type GenerateTokenResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJhY2NvdW50X2lkIjoidHdpdGNoLjEwMDEifQ.signature"`
	AccountID string `json:"account_id" example:"twitch.1001"`
	ExpiresIn int64  `json:"expires_in" example:"86400"`
	TokenType string `json:"token_type" example:"Bearer"`
}

// ErrorResponse エラーレスポンス
// @Description エラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_amount"`
	Message string `json:"message" example:"invalid amount"`
}
