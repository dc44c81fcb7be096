package history

import "command-server/internal/domain/transaction"

// GetTransactionHistoryRequest トランザクション履歴取得リクエスト
type GetTransactionHistoryRequest struct {
	AccountID       string
	Limit           int
	Offset          int
	CurrencyID      string // optional: "points" など
	TransactionType string // optional: "grant", "hold", "payout" など
}

// GetTransactionHistoryResponse トランザクション履歴取得レスポンス
type GetTransactionHistoryResponse struct {
	Transactions []*transaction.Transaction
	Limit        int
	Offset       int
}

// GetByReferenceRequest 関連キー指定の履歴取得リクエスト
type GetByReferenceRequest struct {
	Reference string
}
