package currency

import "errors"

var (
	// ErrInsufficientBalance 残高不足エラー
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 無効な金額エラー
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountTooLarge 金額が大きすぎる
	ErrAmountTooLarge = errors.New("amount too large")
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = errors.New("balance out of range")
	// ErrInvalidAccountID アカウントIDが無効
	ErrInvalidAccountID = errors.New("invalid account id")
	// ErrInvalidCurrencyID 通貨IDが無効
	ErrInvalidCurrencyID = errors.New("invalid currency id")
	// ErrCurrencyNotFound 通貨が見つからないエラー
	ErrCurrencyNotFound = errors.New("currency not found")
	// ErrOptimisticLock 楽観的ロックの競合
	ErrOptimisticLock = errors.New("optimistic lock failed")
)
