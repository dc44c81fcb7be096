package transaction

import (
	"regexp"
	"time"

	"command-server/internal/domain/currency"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Transaction 台帳の1操作を表すエンティティ
type Transaction struct {
	transactionID   string
	accountID       string
	transactionType TransactionType
	currencyID      currency.CurrencyID
	amount          int64
	balanceBefore   int64
	balanceAfter    int64
	reference       string // 確保ID・ゲームセッションIDなど、関連する操作をまとめるキー
	requester       string // 操作元（コマンドID・管理APIなど）
	metadata        map[string]interface{}
	createdAt       time.Time
}

// Params Transaction作成パラメータ
type Params struct {
	TransactionID   string
	AccountID       string
	TransactionType TransactionType
	CurrencyID      currency.CurrencyID
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	Reference       string
	Requester       string
	Metadata        map[string]interface{}
	CreatedAt       time.Time
}

// NewTransaction 新しいTransactionエンティティを作成
func NewTransaction(p Params) (*Transaction, error) {
	if !idRegex.MatchString(p.TransactionID) {
		return nil, ErrInvalidTransactionID
	}
	if !idRegex.MatchString(p.AccountID) {
		return nil, ErrInvalidAccountID
	}
	if !p.TransactionType.Valid() {
		return nil, ErrInvalidTransaction
	}
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if p.Amount > currency.MaxAmount {
		return nil, ErrAmountTooLarge
	}
	if p.BalanceBefore < 0 || p.BalanceBefore > currency.MaxAmount ||
		p.BalanceAfter < 0 || p.BalanceAfter > currency.MaxAmount {
		return nil, ErrBalanceOutOfRange
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &Transaction{
		transactionID:   p.TransactionID,
		accountID:       p.AccountID,
		transactionType: p.TransactionType,
		currencyID:      p.CurrencyID,
		amount:          p.Amount,
		balanceBefore:   p.BalanceBefore,
		balanceAfter:    p.BalanceAfter,
		reference:       p.Reference,
		requester:       p.Requester,
		metadata:        p.Metadata,
		createdAt:       createdAt,
	}, nil
}

// TransactionID トランザクションIDを返す
func (t *Transaction) TransactionID() string {
	return t.transactionID
}

// AccountID アカウントIDを返す
func (t *Transaction) AccountID() string {
	return t.accountID
}

// TransactionType トランザクションタイプを返す
func (t *Transaction) TransactionType() TransactionType {
	return t.transactionType
}

// CurrencyID 通貨IDを返す
func (t *Transaction) CurrencyID() currency.CurrencyID {
	return t.currencyID
}

// Amount 金額を返す
func (t *Transaction) Amount() int64 {
	return t.amount
}

// BalanceBefore 処理前の残高を返す
func (t *Transaction) BalanceBefore() int64 {
	return t.balanceBefore
}

// BalanceAfter 処理後の残高を返す
func (t *Transaction) BalanceAfter() int64 {
	return t.balanceAfter
}

// Reference 関連キーを返す
func (t *Transaction) Reference() string {
	return t.reference
}

// Requester 操作元を返す
func (t *Transaction) Requester() string {
	return t.requester
}

// Metadata メタデータを返す
func (t *Transaction) Metadata() map[string]interface{} {
	return t.metadata
}

// CreatedAt 作成日時を返す
func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

// MustNewTransaction テスト用ヘルパー: NewTransactionを呼び出し、エラーが発生した場合はpanicする
func MustNewTransaction(p Params) *Transaction {
	tx, err := NewTransaction(p)
	if err != nil {
		panic(err)
	}
	return tx
}
