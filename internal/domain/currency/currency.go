package currency

import (
	"regexp"
)

const (
	// MaxAmount 最大金額 (10兆)
	MaxAmount = 10_000_000_000_000
)

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Currency 通貨残高エンティティ（アカウント×通貨ごと）
type Currency struct {
	accountID  string
	currencyID CurrencyID
	balance    int64 // 整数値（小数点なし）、常に0以上
	version    int   // 楽観的ロック用（読み込み時点のバージョン）
}

// NewCurrency 新しいCurrencyエンティティを作成
func NewCurrency(accountID string, currencyID CurrencyID, balance int64, version int) (*Currency, error) {
	if !accountIDRegex.MatchString(accountID) {
		return nil, ErrInvalidAccountID
	}
	if balance < 0 || balance > MaxAmount {
		return nil, ErrBalanceOutOfRange
	}
	return &Currency{
		accountID:  accountID,
		currencyID: currencyID,
		balance:    balance,
		version:    version,
	}, nil
}

// AccountID アカウントIDを返す
func (c *Currency) AccountID() string {
	return c.accountID
}

// CurrencyID 通貨IDを返す
func (c *Currency) CurrencyID() CurrencyID {
	return c.currencyID
}

// Balance 残高を返す
func (c *Currency) Balance() int64 {
	return c.balance
}

// Version バージョンを返す（楽観的ロック用）
func (c *Currency) Version() int {
	return c.version
}

// HasAmount 指定額以上の残高があるかを返す
func (c *Currency) HasAmount(amount int64) bool {
	return c.balance >= amount
}

// Grant 通貨を付与する
func (c *Currency) Grant(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	// オーバーフローチェック
	if c.balance > MaxAmount-amount {
		return ErrBalanceOutOfRange
	}
	c.balance += amount
	return nil
}

// Consume 通貨を消費する（マイナス残高は許可しない）
func (c *Currency) Consume(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	if c.balance < amount {
		return ErrInsufficientBalance
	}
	c.balance -= amount
	return nil
}

// MustNewCurrency テスト用ヘルパー: NewCurrencyを呼び出し、エラーが発生した場合はpanicする
func MustNewCurrency(accountID string, currencyID CurrencyID, balance int64, version int) *Currency {
	c, err := NewCurrency(accountID, currencyID, balance, version)
	if err != nil {
		panic(err)
	}
	return c
}
