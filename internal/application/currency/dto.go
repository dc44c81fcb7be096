package currency

// GetBalanceRequest 残高取得リクエスト
type GetBalanceRequest struct {
	AccountID string
}

// GetBalanceResponse 残高取得レスポンス
type GetBalanceResponse struct {
	AccountID string
	Balances  map[string]int64 // "points" => 1000
}

// GrantRequest 通貨付与リクエスト
type GrantRequest struct {
	AccountID  string
	CurrencyID string
	Amount     int64
	Reference  string
	Requester  string
	Metadata   map[string]interface{}
}

// GrantResponse 通貨付与レスポンス
type GrantResponse struct {
	TransactionID string
	BalanceAfter  int64
}

// ConsumeRequest 通貨消費リクエスト
type ConsumeRequest struct {
	AccountID  string
	CurrencyID string
	Amount     int64
	Reference  string
	Requester  string
	Metadata   map[string]interface{}
}

// ConsumeResponse 通貨消費レスポンス
type ConsumeResponse struct {
	TransactionID string
	BalanceAfter  int64
}
