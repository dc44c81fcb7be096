// Package game 複数回の呼び出しとタイマーにまたがる賭けゲームの実行
package game

import (
	"context"
	"fmt"
	"time"

	"command-server/internal/application/requirement"
	domainaction "command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// ActionRunner アクション列の実行
type ActionRunner interface {
	ExecuteAll(ctx context.Context, actions []domainaction.Action, p *command.Parameters) (int, error)
}

// Presence アクティブな視聴者の検索
type Presence interface {
	Random(platform user.Platform, exclude *user.User, rng port.RNG) (*user.User, bool)
}

// Timer 停止可能なタイマー
type Timer interface {
	Stop() bool
}

// AfterFunc d経過後にfを別goroutineで呼ぶタイマーを開始する
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Runtime ゲーム実行に必要な共有コラボレーター
type Runtime struct {
	Gate     *requirement.Gate
	Actions  ActionRunner
	Chat     port.ChatSink
	Ledger   port.Ledger
	RNG      port.RNG
	Presence Presence
	Logger   *otelinfra.Logger
	Metrics  *otelinfra.Metrics
}

// say ゲームのシステムメッセージを送る。失敗はログのみ
func (rt Runtime) say(ctx context.Context, text string) {
	if err := rt.Chat.SendMessage(ctx, text, false); err != nil {
		rt.Logger.Warn(ctx, "Failed to send game message", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// run 分岐のアクション列を実行する。アクションの失敗はログのみ
func (rt Runtime) run(ctx context.Context, cmd *command.Command, branch string, actions []domainaction.Action, p *command.Parameters) {
	if len(actions) == 0 {
		return
	}
	failed, err := rt.Actions.ExecuteAll(ctx, actions, p)
	if err != nil {
		rt.Logger.Warn(ctx, "Game branch interrupted", map[string]interface{}{
			"command_id": cmd.ID,
			"branch":     branch,
			"error":      err.Error(),
		})
		return
	}
	if failed > 0 {
		rt.Logger.Warn(ctx, "Game branch finished with failed actions", map[string]interface{}{
			"command_id": cmd.ID,
			"branch":     branch,
			"failed":     failed,
		})
	}
}

func requirementFailure(amount int64, currencyID string) requirement.Result {
	return requirement.Result{
		Kind:   command.RequirementCurrency,
		Reason: fmt.Sprintf("You do not have the required %d %s", amount, currencyID),
	}
}
