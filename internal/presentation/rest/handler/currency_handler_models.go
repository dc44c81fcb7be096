package handler

// BalanceResponse 残高レスポンス
// @Description 残高レスポンス（通貨IDごと、金額は文字列）
type BalanceResponse struct {
	AccountID string            `json:"account_id" example:"twitch.1001"`
	Balances  map[string]string `json:"balances"`
}

// GrantRequest 通貨付与リクエスト
// @Description 通貨付与リクエスト
type GrantRequest struct {
	CurrencyID string                 `json:"currency_id" example:"points"`
	Amount     string                 `json:"amount" example:"100"`
	Reference  string                 `json:"reference" example:"stream-reward-2024-01-01"`
	Requester  string                 `json:"requester" example:"dashboard"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// GrantResponse 通貨付与レスポンス
// @Description 通貨付与レスポンス
type GrantResponse struct {
	TransactionID string `json:"transaction_id" example:"txn_123"`
	BalanceAfter  string `json:"balance_after" example:"600"`
}

// ConsumeRequest 通貨消費リクエスト
// @Description 通貨消費リクエスト
type ConsumeRequest struct {
	CurrencyID string                 `json:"currency_id" example:"points"`
	Amount     string                 `json:"amount" example:"50"`
	Reference  string                 `json:"reference" example:"reward-redeem-42"`
	Requester  string                 `json:"requester" example:"dashboard"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// ConsumeResponse 通貨消費レスポンス
// @Description 通貨消費レスポンス
type ConsumeResponse struct {
	TransactionID string `json:"transaction_id" example:"txn_456"`
	BalanceAfter  string `json:"balance_after" example:"950"`
}
