package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	currencyapp "command-server/internal/application/currency"
	restmiddleware "command-server/internal/presentation/rest/middleware"
)

// CurrencyHandler 通貨関連ハンドラー
type CurrencyHandler struct {
	currencyService *currencyapp.CurrencyApplicationService
}

// NewCurrencyHandler 新しいCurrencyHandlerを作成
func NewCurrencyHandler(currencyService *currencyapp.CurrencyApplicationService) *CurrencyHandler {
	return &CurrencyHandler{
		currencyService: currencyService,
	}
}

// GetBalance 残高取得ハンドラー（視聴者API用）
// @Summary 残高を取得
// @Description 自分の通貨残高を取得します
// @Tags currency
// @Produce json
// @Security Bearer
// @Success 200 {object} BalanceResponse "残高取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /api/v1/me/balance [get]
func (h *CurrencyHandler) GetBalance(c echo.Context) error {
	// トークンからaccount_idを取得
	accountID, ok := c.Get(restmiddleware.ContextKeyAccountID).(string)
	if !ok || accountID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "account_id not found in token")
	}
	return h.balance(c, accountID)
}

// GetBalanceAdmin 残高取得ハンドラー（管理API用）
// @Summary 残高を取得（管理API）
// @Description 指定されたアカウントの通貨残高を取得します
// @Tags admin
// @Produce json
// @Param user_id path string true "アカウントID" example(twitch.1001)
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} BalanceResponse "残高取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/balance [get]
func (h *CurrencyHandler) GetBalanceAdmin(c echo.Context) error {
	accountID := c.Param("user_id")
	if accountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return h.balance(c, accountID)
}

func (h *CurrencyHandler) balance(c echo.Context, accountID string) error {
	resp, err := h.currencyService.GetBalance(c.Request().Context(), &currencyapp.GetBalanceRequest{
		AccountID: accountID,
	})
	if err != nil {
		return err
	}

	balances := make(map[string]string, len(resp.Balances))
	for id, v := range resp.Balances {
		balances[id] = strconv.FormatInt(v, 10)
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		AccountID: resp.AccountID,
		Balances:  balances,
	})
}

// GrantCurrency 通貨付与ハンドラー（管理API用）
// @Summary 通貨を付与（管理API）
// @Description 指定されたアカウントに通貨を付与します
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "アカウントID" example(twitch.1001)
// @Param X-API-Key header string true "APIキー"
// @Param request body GrantRequest true "通貨付与リクエスト"
// @Success 200 {object} GrantResponse "通貨付与成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/grant [post]
func (h *CurrencyHandler) GrantCurrency(c echo.Context) error {
	accountID := c.Param("user_id")
	if accountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var reqBody GrantRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// 金額をint64に変換
	amount, err := strconv.ParseInt(reqBody.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	resp, err := h.currencyService.Grant(c.Request().Context(), &currencyapp.GrantRequest{
		AccountID:  accountID,
		CurrencyID: reqBody.CurrencyID,
		Amount:     amount,
		Reference:  reqBody.Reference,
		Requester:  requesterOr(reqBody.Requester),
		Metadata:   reqBody.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, GrantResponse{
		TransactionID: resp.TransactionID,
		BalanceAfter:  strconv.FormatInt(resp.BalanceAfter, 10),
	})
}

// ConsumeCurrency 通貨消費ハンドラー（管理API用）
// @Summary 通貨を消費（管理API）
// @Description 指定されたアカウントの通貨を消費します
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "アカウントID" example(twitch.1001)
// @Param X-API-Key header string true "APIキー"
// @Param request body ConsumeRequest true "通貨消費リクエスト"
// @Success 200 {object} ConsumeResponse "通貨消費成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "残高不足"
// @Router /admin/users/{user_id}/consume [post]
func (h *CurrencyHandler) ConsumeCurrency(c echo.Context) error {
	accountID := c.Param("user_id")
	if accountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var reqBody ConsumeRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	amount, err := strconv.ParseInt(reqBody.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	resp, err := h.currencyService.Consume(c.Request().Context(), &currencyapp.ConsumeRequest{
		AccountID:  accountID,
		CurrencyID: reqBody.CurrencyID,
		Amount:     amount,
		Reference:  reqBody.Reference,
		Requester:  requesterOr(reqBody.Requester),
		Metadata:   reqBody.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ConsumeResponse{
		TransactionID: resp.TransactionID,
		BalanceAfter:  strconv.FormatInt(resp.BalanceAfter, 10),
	})
}

// requesterOr 操作元が未指定なら管理APIとする
func requesterOr(requester string) string {
	if requester == "" {
		return "admin_api"
	}
	return requester
}
