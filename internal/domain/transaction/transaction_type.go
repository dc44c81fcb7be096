package transaction

import (
	"fmt"
)

// TransactionType 台帳操作の種類を表す値オブジェクト
type TransactionType string

const (
	TransactionTypeGrant   TransactionType = "grant"   // 付与（コマンド・管理API）
	TransactionTypeConsume TransactionType = "consume" // 消費
	TransactionTypeHold    TransactionType = "hold"    // コマンド実行のための確保
	TransactionTypeRefund  TransactionType = "refund"  // 確保分の返金
	TransactionTypePayout  TransactionType = "payout"  // ゲームの払い戻し（勝者側）
	TransactionTypeLoss    TransactionType = "loss"    // ゲームの支払い（敗者側）
)

// NewTransactionType 新しいTransactionTypeを作成
func NewTransactionType(s string) (TransactionType, error) {
	tt := TransactionType(s)
	if !tt.Valid() {
		return "", fmt.Errorf("%w: unknown type %s", ErrInvalidTransaction, s)
	}
	return tt, nil
}

// String 文字列表現を返す
func (tt TransactionType) String() string {
	return string(tt)
}

// Valid 有効なトランザクションタイプかどうかを返す
func (tt TransactionType) Valid() bool {
	switch tt {
	case TransactionTypeGrant, TransactionTypeConsume, TransactionTypeHold,
		TransactionTypeRefund, TransactionTypePayout, TransactionTypeLoss:
		return true
	default:
		return false
	}
}

// Credit 残高を増やす操作かどうかを返す
func (tt TransactionType) Credit() bool {
	return tt == TransactionTypeGrant || tt == TransactionTypeRefund || tt == TransactionTypePayout
}
