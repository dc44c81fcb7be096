package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	authapp "command-server/internal/application/auth"
	commandapp "command-server/internal/application/command"
	"command-server/internal/domain/command"
	"command-server/internal/domain/currency"
	"command-server/internal/domain/transaction"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// errorMapping ドメインエラーとHTTPレスポンスの対応
type errorMapping struct {
	target error
	status int
	code   string
}

// 上から順に評価する
var errorMappings = []errorMapping{
	{currency.ErrInsufficientBalance, http.StatusConflict, "insufficient_balance"},
	{currency.ErrOptimisticLock, http.StatusConflict, "conflict"},
	{currency.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{currency.ErrAmountTooLarge, http.StatusBadRequest, "invalid_amount"},
	{currency.ErrBalanceOutOfRange, http.StatusBadRequest, "invalid_amount"},
	{currency.ErrInvalidCurrencyID, http.StatusBadRequest, "invalid_currency_id"},
	{currency.ErrInvalidAccountID, http.StatusBadRequest, "invalid_account_id"},
	{transaction.ErrInvalidTransaction, http.StatusBadRequest, "invalid_transaction_type"},
	{user.ErrInvalidUser, http.StatusBadRequest, "invalid_user"},
	{currency.ErrCurrencyNotFound, http.StatusNotFound, "currency_not_found"},
	{transaction.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{command.ErrCommandNotFound, http.StatusNotFound, "command_not_found"},
	{commandapp.ErrUnknownTrigger, http.StatusNotFound, "command_not_found"},
	{authapp.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
}

// ErrorHandlerMiddleware エラーハンドリングミドルウェア
func ErrorHandlerMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			return handleError(c, err, logger)
		}
	}
}

// handleError エラーを処理して適切なHTTPレスポンスを返す
func handleError(c echo.Context, err error, logger *otelinfra.Logger) error {
	ctx := c.Request().Context()

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			logger.Warn(ctx, "Request rejected", map[string]interface{}{
				"error":       err.Error(),
				"status_code": m.status,
			})
			return c.JSON(m.status, ErrorResponse{
				Error:   m.code,
				Message: err.Error(),
			})
		}
	}

	// EchoのHTTPエラー
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		logger.Warn(ctx, "HTTP error", map[string]interface{}{
			"status_code": httpErr.Code,
			"message":     httpErr.Message,
		})
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, ErrorResponse{
			Error:   http.StatusText(httpErr.Code),
			Message: message,
		})
	}

	// 予期しないエラー
	logger.Error(ctx, "Internal server error", err, map[string]interface{}{
		"path": c.Request().URL.Path,
	})
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_server_error",
		Message: "An unexpected error occurred",
	})
}
