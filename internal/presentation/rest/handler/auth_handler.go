package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authapp "command-server/internal/application/auth"
)

// AuthHandler 認証関連ハンドラー
type AuthHandler struct {
	authService *authapp.AuthApplicationService
}

// NewAuthHandler 新しいAuthHandlerを作成
func NewAuthHandler(authService *authapp.AuthApplicationService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GenerateToken 視聴者トークン発行ハンドラー（管理API用）
// @Summary 視聴者トークンを発行（管理API）
// @Description 配信プラットフォームのユーザーに対して残高照会用のJWTを発行します
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body GenerateTokenRequest true "トークン生成リクエスト"
// @Success 200 {object} GenerateTokenResponse "トークン生成成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/tokens [post]
func (h *AuthHandler) GenerateToken(c echo.Context) error {
	var reqBody GenerateTokenRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if reqBody.Platform == "" || reqBody.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "platform and user_id are required")
	}
	if reqBody.Username == "" {
		reqBody.Username = reqBody.UserID
	}

	resp, err := h.authService.GenerateToken(c.Request().Context(), &authapp.GenerateTokenRequest{
		Platform: reqBody.Platform,
		UserID:   reqBody.UserID,
		Username: reqBody.Username,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, GenerateTokenResponse{
		Token:     resp.Token,
		AccountID: resp.AccountID,
		ExpiresIn: resp.ExpiresIn,
		TokenType: resp.TokenType,
	})
}
