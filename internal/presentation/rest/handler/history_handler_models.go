package handler

// TransactionItem トランザクションアイテム
// @Description トランザクションアイテム
type TransactionItem struct {
	TransactionID   string `json:"transaction_id" example:"txn_123"`
	TransactionType string `json:"transaction_type" example:"hold"`
	CurrencyID      string `json:"currency_id" example:"points"`
	Amount          string `json:"amount" example:"30"`
	BalanceBefore   string `json:"balance_before" example:"100"`
	BalanceAfter    string `json:"balance_after" example:"70"`
	Reference       string `json:"reference,omitempty" example:"hold_7c9e6679"`
	Requester       string `json:"requester,omitempty" example:"duel"`
	CreatedAt       string `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

// TransactionHistoryResponse トランザクション履歴レスポンス
// @Description トランザクション履歴レスポンス
type TransactionHistoryResponse struct {
	Transactions []TransactionItem `json:"transactions"`
	Limit        int               `json:"limit" example:"50"`
	Offset       int               `json:"offset" example:"0"`
}
