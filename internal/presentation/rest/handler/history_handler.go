package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	historyapp "command-server/internal/application/history"
	restmiddleware "command-server/internal/presentation/rest/middleware"
)

// HistoryHandler 履歴関連ハンドラー
type HistoryHandler struct {
	historyService *historyapp.HistoryApplicationService
}

// NewHistoryHandler 新しいHistoryHandlerを作成
func NewHistoryHandler(historyService *historyapp.HistoryApplicationService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// GetTransactionHistory トランザクション履歴取得ハンドラー（視聴者API用）
// @Summary トランザクション履歴を取得
// @Description 自分のトランザクション履歴を新しい順に取得します
// @Tags history
// @Produce json
// @Security Bearer
// @Param limit query int false "取得件数（デフォルト: 50, 最大: 100)" default(50)
// @Param offset query int false "オフセット（デフォルト: 0)" default(0)
// @Param currency_id query string false "通貨IDでフィルタ" example(points)
// @Param transaction_type query string false "トランザクションタイプでフィルタ（grant/consume/hold/refund/payout/loss）" example(payout)
// @Success 200 {object} TransactionHistoryResponse "履歴取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /api/v1/me/transactions [get]
func (h *HistoryHandler) GetTransactionHistory(c echo.Context) error {
	accountID, ok := c.Get(restmiddleware.ContextKeyAccountID).(string)
	if !ok || accountID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "account_id not found in token")
	}
	return h.history(c, accountID)
}

// GetTransactionHistoryAdmin トランザクション履歴取得ハンドラー（管理API用）
// @Summary トランザクション履歴を取得（管理API）
// @Description 指定されたアカウントのトランザクション履歴を新しい順に取得します
// @Tags admin
// @Produce json
// @Param user_id path string true "アカウントID" example(twitch.1001)
// @Param X-API-Key header string true "APIキー"
// @Param limit query int false "取得件数（デフォルト: 50, 最大: 100)" default(50)
// @Param offset query int false "オフセット（デフォルト: 0)" default(0)
// @Param currency_id query string false "通貨IDでフィルタ" example(points)
// @Param transaction_type query string false "トランザクションタイプでフィルタ" example(payout)
// @Success 200 {object} TransactionHistoryResponse "履歴取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/transactions [get]
func (h *HistoryHandler) GetTransactionHistoryAdmin(c echo.Context) error {
	accountID := c.Param("user_id")
	if accountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return h.history(c, accountID)
}

func (h *HistoryHandler) history(c echo.Context, accountID string) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		var err error
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit parameter")
		}
	}

	offset := 0
	if s := c.QueryParam("offset"); s != "" {
		var err error
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset parameter")
		}
	}

	resp, err := h.historyService.GetTransactionHistory(c.Request().Context(), &historyapp.GetTransactionHistoryRequest{
		AccountID:       accountID,
		Limit:           limit,
		Offset:          offset,
		CurrencyID:      c.QueryParam("currency_id"),
		TransactionType: c.QueryParam("transaction_type"),
	})
	if err != nil {
		return err
	}

	transactions := make([]TransactionItem, len(resp.Transactions))
	for i, txn := range resp.Transactions {
		transactions[i] = TransactionItem{
			TransactionID:   txn.TransactionID(),
			TransactionType: txn.TransactionType().String(),
			CurrencyID:      txn.CurrencyID().String(),
			Amount:          strconv.FormatInt(txn.Amount(), 10),
			BalanceBefore:   strconv.FormatInt(txn.BalanceBefore(), 10),
			BalanceAfter:    strconv.FormatInt(txn.BalanceAfter(), 10),
			Reference:       txn.Reference(),
			Requester:       txn.Requester(),
			CreatedAt:       txn.CreatedAt().UTC().Format(time.RFC3339),
		}
	}

	return c.JSON(http.StatusOK, TransactionHistoryResponse{
		Transactions: transactions,
		Limit:        resp.Limit,
		Offset:       resp.Offset,
	})
}
