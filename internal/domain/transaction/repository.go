package transaction

import (
	"context"
)

// TransactionRepository トランザクションリポジトリインターフェース
type TransactionRepository interface {
	// Save トランザクションを保存
	Save(ctx context.Context, transaction *Transaction) error

	// FindByTransactionID トランザクションIDでトランザクションを取得
	FindByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)

	// FindByAccountID アカウントIDでトランザクション一覧を取得（新しい順、ページネーション対応）
	FindByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)

	// FindByReference 関連キーでトランザクション一覧を取得
	FindByReference(ctx context.Context, reference string) ([]*Transaction, error)
}
