package currency

import (
	"context"
)

// CurrencyRepository 通貨リポジトリインターフェース
type CurrencyRepository interface {
	// FindByAccountAndCurrency アカウントIDと通貨IDで通貨を取得
	FindByAccountAndCurrency(ctx context.Context, accountID string, currencyID CurrencyID) (*Currency, error)

	// FindByAccount アカウントの全通貨を取得
	FindByAccount(ctx context.Context, accountID string) ([]*Currency, error)

	// Save 通貨を保存（更新、楽観的ロック対応）
	Save(ctx context.Context, currency *Currency) error

	// Create 新しい通貨を作成
	Create(ctx context.Context, currency *Currency) error
}
