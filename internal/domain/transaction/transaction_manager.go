package transaction

import (
	"context"
)

// TransactionManager トランザクション管理インターフェース
// fnに渡されるコンテキストにはDBトランザクションが紐づき、リポジトリはそれを使って実行される
type TransactionManager interface {
	// WithTransaction トランザクション内で関数を実行
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
