// Package port エンジンが依存する外部コラボレーターのインターフェース
package port

import (
	"context"

	"command-server/internal/domain/user"
)

// ChatSink チャット送信先
type ChatSink interface {
	SendMessage(ctx context.Context, text string, asStreamer bool) error
	Whisper(ctx context.Context, platform user.Platform, username, text string, asStreamer bool) error
}

// OverlayCommand オーバーレイへの操作指示
type OverlayCommand struct {
	Title     string            `json:"title"`
	Operation string            `json:"operation"`
	Variables map[string]string `json:"variables,omitempty"`
}

// OverlaySink オーバーレイ描画先
type OverlaySink interface {
	Update(ctx context.Context, cmd OverlayCommand) error
}

// Settlement 賭けの精算
// 敗者からStakeを引き、勝者にStake+Escrowを加える（Escrowは事前に確保済みの掛け金）
type Settlement struct {
	WinnerID   string
	LoserID    string
	CurrencyID string
	Stake      int64
	Escrow     int64
	Reference  string
}

// HoldReferencePrefix 確保に紐づく関連キーの接頭辞
const HoldReferencePrefix = "hold_"

// Ledger 通貨台帳
// 各操作はユーザー単位でアトミック、Settleは複数アカウントをまとめてアトミックに更新する
type Ledger interface {
	Balance(ctx context.Context, accountID, currencyID string) (int64, error)
	HasAmount(ctx context.Context, accountID, currencyID string, amount int64) (bool, error)
	AddAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error
	SubtractAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error
	Settle(ctx context.Context, s Settlement) error
}

// RNG 乱数源
type RNG interface {
	// NextUniform [0,1) の一様乱数
	NextUniform() float64
	// IntN [0,n) の整数乱数
	IntN(n int) int
}
