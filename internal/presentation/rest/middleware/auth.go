package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authapp "command-server/internal/application/auth"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// コンテキストキー
const (
	ContextKeyAccountID = "account_id"
	ContextKeyUsername  = "username"
)

// AuthMiddleware 視聴者向けJWT認証ミドルウェア
func AuthMiddleware(auth *authapp.AuthApplicationService, logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn(ctx, "Missing authorization header", nil)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "Missing authorization header",
				})
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || token == "" {
				logger.Warn(ctx, "Invalid authorization header format", nil)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "Invalid authorization header format",
				})
			}

			claims, err := auth.ParseToken(token)
			if err != nil {
				logger.Warn(ctx, "Invalid token", map[string]interface{}{
					"error": err.Error(),
				})
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "Invalid or expired token",
				})
			}

			c.Set(ContextKeyAccountID, claims.AccountID)
			c.Set(ContextKeyUsername, claims.Username)
			return next(c)
		}
	}
}
