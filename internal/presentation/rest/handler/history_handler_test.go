package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	historyapp "command-server/internal/application/history"
	"command-server/internal/domain/transaction"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	restmiddleware "command-server/internal/presentation/rest/middleware"
)

func newTxn(id string, tt transaction.TransactionType, amount int64) *transaction.Transaction {
	return transaction.MustNewTransaction(transaction.Params{
		TransactionID:   id,
		AccountID:       "twitch.1001",
		TransactionType: tt,
		CurrencyID:      points,
		Amount:          amount,
		BalanceBefore:   100,
		BalanceAfter:    100 - amount,
		Reference:       "hold_1",
		Requester:       "duel",
	})
}

func TestHistoryHandler_GetTransactionHistory(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		tokenAccountID string
		setupMock      func(*MockTransactionRepository)
		expectedStatus int
		expectedIDs    []string
	}{
		{
			name:           "正常系: デフォルトのページング",
			tokenAccountID: "twitch.1001",
			setupMock: func(tr *MockTransactionRepository) {
				tr.On("FindByAccountID", mock.Anything, "twitch.1001", 50, 0).Return([]*transaction.Transaction{
					newTxn("txn_2", transaction.TransactionTypeLoss, 30),
					newTxn("txn_1", transaction.TransactionTypeHold, 30),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"txn_2", "txn_1"},
		},
		{
			name:           "正常系: 種類でフィルタ",
			query:          "?transaction_type=hold&limit=10&offset=5",
			tokenAccountID: "twitch.1001",
			setupMock: func(tr *MockTransactionRepository) {
				tr.On("FindByAccountID", mock.Anything, "twitch.1001", 10, 5).Return([]*transaction.Transaction{
					newTxn("txn_2", transaction.TransactionTypeLoss, 30),
					newTxn("txn_1", transaction.TransactionTypeHold, 30),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"txn_1"},
		},
		{
			name:           "異常系: 不正なlimit",
			query:          "?limit=500",
			tokenAccountID: "twitch.1001",
			setupMock:      func(tr *MockTransactionRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: 不正な種類",
			query:          "?transaction_type=steal",
			tokenAccountID: "twitch.1001",
			setupMock:      func(tr *MockTransactionRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: トークンなし",
			setupMock:      func(tr *MockTransactionRepository) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransactionRepository)
			tt.setupMock(tr)
			h := NewHistoryHandler(historyapp.NewHistoryApplicationService(tr, otelinfra.NewNopLogger()))

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/transactions"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.tokenAccountID != "" {
				c.Set(restmiddleware.ContextKeyAccountID, tt.tokenAccountID)
			}

			serve(t, h.GetTransactionHistory, c)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedIDs == nil {
				return
			}

			var body TransactionHistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			ids := make([]string, len(body.Transactions))
			for i, item := range body.Transactions {
				ids[i] = item.TransactionID
				assert.Equal(t, "points", item.CurrencyID)
				assert.Equal(t, "70", item.BalanceAfter)
			}
			assert.Equal(t, tt.expectedIDs, ids)
			tr.AssertExpectations(t)
		})
	}
}

func TestHistoryHandler_GetTransactionHistoryAdmin(t *testing.T) {
	tr := new(MockTransactionRepository)
	tr.On("FindByAccountID", mock.Anything, "twitch.1002", 50, 0).Return([]*transaction.Transaction{}, nil)
	h := NewHistoryHandler(historyapp.NewHistoryApplicationService(tr, otelinfra.NewNopLogger()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/users/twitch.1002/transactions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("twitch.1002")

	serve(t, h.GetTransactionHistoryAdmin, c)
	assert.Equal(t, http.StatusOK, rec.Code)
	tr.AssertExpectations(t)
}
