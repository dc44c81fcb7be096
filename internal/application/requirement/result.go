package requirement

import "command-server/internal/domain/command"

// Result 要件チェックの結果
type Result struct {
	OK     bool
	Kind   command.RequirementKind // 失敗した要件の種類
	Reason string                  // チャットに表示する理由
	Amount int64                   // 確保すべき通貨額（賭け金を含む）
	Err    error                   // 台帳・ストアの障害
}

func pass(amount int64) Result {
	return Result{OK: true, Amount: amount}
}

func fail(kind command.RequirementKind, reason string) Result {
	return Result{Kind: kind, Reason: reason}
}
