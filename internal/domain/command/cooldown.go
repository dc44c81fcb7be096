package command

import (
	"context"
	"time"
)

// CooldownStore クールダウン期限の保存先
type CooldownStore interface {
	// Expiry キーのクールダウン期限を返す（未設定ならゼロ値）
	Expiry(ctx context.Context, key string) (time.Time, error)

	// SetExpiry キーのクールダウン期限を保存
	SetExpiry(ctx context.Context, key string, expiresAt time.Time) error

	// Clear キーのクールダウンを解除
	Clear(ctx context.Context, key string) error
}
