package currency

import (
	"fmt"
	"regexp"
	"strings"
)

var currencyIDRegex = regexp.MustCompile(`^[a-z0-9_\-]{1,64}$`)

// CurrencyID 通貨の識別子を表す値オブジェクト（例: "points", "gems"）
type CurrencyID string

// NewCurrencyID 新しいCurrencyIDを作成
func NewCurrencyID(s string) (CurrencyID, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	if !currencyIDRegex.MatchString(id) {
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrencyID, s)
	}
	return CurrencyID(id), nil
}

// MustNewCurrencyID テスト用ヘルパー
func MustNewCurrencyID(s string) CurrencyID {
	id, err := NewCurrencyID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String 文字列表現を返す
func (id CurrencyID) String() string {
	return string(id)
}
