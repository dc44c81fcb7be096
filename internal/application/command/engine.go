// Package command コマンドの実行（要件チェック→アクション→クールダウン）とチャットからの振り分け
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/application/game"
	"command-server/internal/application/requirement"
	"command-server/internal/domain/action"
	domain "command-server/internal/domain/command"
	"command-server/internal/domain/currency"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// ActionRunner アクション列の実行
type ActionRunner interface {
	ExecuteAll(ctx context.Context, actions []action.Action, p *domain.Parameters) (int, error)
}

// Engine コマンド実行エンジン
type Engine struct {
	gate    *requirement.Gate
	actions ActionRunner
	logger  *otelinfra.Logger
	metrics *otelinfra.Metrics
	tracer  trace.Tracer

	mu    sync.RWMutex
	games map[string]game.Runner
}

// NewEngine 新しいEngineを作成
func NewEngine(gate *requirement.Gate, actions ActionRunner, logger *otelinfra.Logger, metrics *otelinfra.Metrics) *Engine {
	return &Engine{
		gate:    gate,
		actions: actions,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("command-engine"),
		games:   make(map[string]game.Runner),
	}
}

// RegisterGame ゲームコマンドのランナーを登録
func (e *Engine) RegisterGame(commandID string, r game.Runner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.games[commandID] = r
}

// Game 登録済みのランナーを返す
func (e *Engine) Game(commandID string) (game.Runner, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.games[commandID]
	return r, ok
}

// Perform コマンドを1回実行する
// 要件を満たさなければ理由を通知して副作用なしで終わる。アクションは宣言順に1つずつ実行し、
// 失敗しても残りを続ける。取り消された場合は確保を返金し、クールダウンは記録しない
func (e *Engine) Perform(ctx context.Context, cmd *domain.Command, p *domain.Parameters) (err error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Perform")
	defer span.End()
	span.SetAttributes(
		attribute.String("command_id", cmd.ID),
		attribute.String("account_id", p.User.AccountID()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if !cmd.Enabled {
		e.metrics.RecordCommand(ctx, cmd.ID, "disabled")
		return nil
	}

	if cmd.IsGame() {
		r, ok := e.Game(cmd.ID)
		if !ok {
			e.logger.Warn(ctx, "Game command has no runner", map[string]interface{}{
				"command_id": cmd.ID,
				"game_type":  cmd.Game.Type.String(),
			})
			e.metrics.RecordCommand(ctx, cmd.ID, "unsupported")
			return nil
		}
		e.metrics.RecordCommand(ctx, cmd.ID, "game")
		return r.Play(ctx, p)
	}

	res := e.gate.Validate(ctx, cmd, p)
	if !res.OK {
		e.gate.Notify(ctx, res, p)
		e.metrics.RecordCommand(ctx, cmd.ID, "rejected")
		return res.Err
	}

	hold, err := e.gate.Reserve(ctx, cmd, p, res.Amount)
	if err != nil {
		if errors.Is(err, currency.ErrInsufficientBalance) {
			e.gate.Notify(ctx, requirement.Result{
				Kind:   domain.RequirementCurrency,
				Reason: fmt.Sprintf("You do not have the required %d %s", res.Amount, cmd.Requirements.Currency.CurrencyID),
			}, p)
			e.metrics.RecordCommand(ctx, cmd.ID, "rejected")
			return nil
		}
		e.metrics.RecordCommand(ctx, cmd.ID, "error")
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.ID, r)
			e.logger.Error(ctx, "Command failed unexpectedly", err, map[string]interface{}{
				"command_id": cmd.ID,
			})
			_ = e.gate.Refund(context.WithoutCancel(ctx), hold)
		}
	}()

	failed, err := e.actions.ExecuteAll(ctx, cmd.Actions, p)
	if err != nil {
		if rerr := e.gate.Refund(context.WithoutCancel(ctx), hold); rerr != nil {
			err = errors.Join(err, rerr)
		}
		e.logger.Warn(ctx, "Command cancelled", map[string]interface{}{
			"command_id": cmd.ID,
			"error":      err.Error(),
		})
		e.metrics.RecordCommand(ctx, cmd.ID, "cancelled")
		return err
	}

	e.gate.Settle(hold)
	if failed == 0 || e.gate.CommitOnActionFailure() {
		// 失敗はGate側でログ済み
		_ = e.gate.CommitCooldown(ctx, cmd, p)
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	e.logger.Info(ctx, "Command performed", map[string]interface{}{
		"command_id":     cmd.ID,
		"account_id":     p.User.AccountID(),
		"failed_actions": failed,
	})
	e.metrics.RecordCommand(ctx, cmd.ID, outcome)
	return nil
}
