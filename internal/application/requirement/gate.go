// Package requirement コマンド実行の前提条件（権限・クールダウン・通貨）の判定と確保
package requirement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"command-server/internal/domain/command"
	"command-server/internal/domain/currency"
	"command-server/internal/domain/port"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// Options Gateの動作設定
type Options struct {
	// ErrorCooldown 同じ種類の要件エラーをチャットに出す最小間隔
	ErrorCooldown time.Duration
	// CommitOnActionFailure アクションが失敗してもクールダウンを記録する
	CommitOnActionFailure bool
}

// Gate 要件ゲート
type Gate struct {
	ledger    port.Ledger
	cooldowns command.CooldownStore
	chat      port.ChatSink
	logger    *otelinfra.Logger
	metrics   *otelinfra.Metrics
	tracer    trace.Tracer
	opts      Options
	now       func() time.Time

	mu        sync.Mutex
	throttles map[command.RequirementKind]*rate.Limiter
}

// NewGate 新しいGateを作成
func NewGate(
	ledger port.Ledger,
	cooldowns command.CooldownStore,
	chat port.ChatSink,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	opts Options,
) *Gate {
	return &Gate{
		ledger:    ledger,
		cooldowns: cooldowns,
		chat:      chat,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("requirement-gate"),
		opts:      opts,
		now:       time.Now,
		throttles: make(map[command.RequirementKind]*rate.Limiter),
	}
}

// CommitOnActionFailure アクション失敗時もクールダウンを記録するかを返す
func (g *Gate) CommitOnActionFailure() bool {
	return g.opts.CommitOnActionFailure
}

// Validate 権限→クールダウン→通貨の順に判定し、最初の失敗で打ち切る
func (g *Gate) Validate(ctx context.Context, cmd *command.Command, p *command.Parameters) Result {
	ctx, span := g.tracer.Start(ctx, "Gate.Validate")
	defer span.End()

	span.SetAttributes(
		attribute.String("command_id", cmd.ID),
		attribute.String("account_id", p.User.AccountID()),
	)

	res := g.validate(ctx, cmd, p)
	if !res.OK {
		span.SetAttributes(attribute.String("requirement", res.Kind.String()))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			g.logger.Error(ctx, "Requirement check failed", res.Err, map[string]interface{}{
				"command_id":  cmd.ID,
				"requirement": res.Kind.String(),
			})
		}
		g.metrics.RecordRequirementReject(ctx, res.Kind.String())
	}
	return res
}

func (g *Gate) validate(ctx context.Context, cmd *command.Command, p *command.Parameters) Result {
	reqs := cmd.Requirements

	if r := reqs.Role; r != nil && !p.User.Role.AtLeast(r.Minimum) {
		return fail(command.RequirementRole,
			fmt.Sprintf("You must be at least %s to use %s", r.Minimum, cmd.Name))
	}

	if c := reqs.Cooldown; c != nil && c.Duration > 0 {
		expiry, err := g.cooldowns.Expiry(ctx, c.Key(cmd.ID, p.User))
		if err != nil {
			res := fail(command.RequirementCooldown, "This command is unavailable right now")
			res.Err = err
			return res
		}
		if remaining := expiry.Sub(g.now()); remaining > 0 {
			secs := int64(math.Ceil(remaining.Seconds()))
			return fail(command.RequirementCooldown,
				fmt.Sprintf("%s is on cooldown, %d second(s) remaining", cmd.Name, secs))
		}
	}

	c := reqs.Currency
	if c == nil {
		return pass(0)
	}

	amount := c.Amount
	if c.Bet {
		bet, err := g.parseBet(ctx, c, p)
		if err != nil {
			res := fail(command.RequirementCurrency, "This command is unavailable right now")
			res.Err = err
			return res
		}
		if bet <= 0 || bet < c.Min || (c.Max > 0 && bet > c.Max) {
			return fail(command.RequirementCurrency, betRangeReason(c))
		}
		amount = bet
	}
	if amount <= 0 {
		return pass(0)
	}

	ok, err := g.ledger.HasAmount(ctx, p.User.AccountID(), c.CurrencyID, amount)
	if err != nil {
		res := fail(command.RequirementCurrency, "This command is unavailable right now")
		res.Err = err
		return res
	}
	if !ok {
		return fail(command.RequirementCurrency,
			fmt.Sprintf("You do not have the required %d %s", amount, c.CurrencyID))
	}
	return pass(amount)
}

func betRangeReason(c *command.CurrencyRequirement) string {
	switch {
	case c.Max > 0:
		return fmt.Sprintf("Your bet must be between %d and %d %s", max(c.Min, 1), c.Max, c.CurrencyID)
	default:
		return fmt.Sprintf("Your bet must be at least %d %s", max(c.Min, 1), c.CurrencyID)
	}
}

// Notify 失敗理由をチャットに送る
// 同じ種類の要件エラーはErrorCooldownに1回まで（ユーザーを問わない）
func (g *Gate) Notify(ctx context.Context, res Result, p *command.Parameters) {
	if res.OK || res.Reason == "" {
		return
	}
	if !g.allow(res.Kind) {
		g.logger.Debug(ctx, "Requirement message throttled", map[string]interface{}{
			"requirement": res.Kind.String(),
		})
		return
	}
	text := res.Reason
	if p != nil && p.User != nil {
		text = p.User.Mention() + " " + text
	}
	if err := g.chat.SendMessage(ctx, text, false); err != nil {
		g.logger.Warn(ctx, "Failed to send requirement message", map[string]interface{}{
			"requirement": res.Kind.String(),
			"error":       err.Error(),
		})
	}
}

func (g *Gate) allow(kind command.RequirementKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.throttles[kind]
	if !ok {
		limit := rate.Inf
		if g.opts.ErrorCooldown > 0 {
			limit = rate.Every(g.opts.ErrorCooldown)
		}
		lim = rate.NewLimiter(limit, 1)
		g.throttles[kind] = lim
	}
	return lim.AllowN(g.now(), 1)
}

// Reserve 通貨を確保する。amountが0ならnilを返す
func (g *Gate) Reserve(ctx context.Context, cmd *command.Command, p *command.Parameters, amount int64) (*Hold, error) {
	c := cmd.Requirements.Currency
	if c == nil || amount <= 0 {
		return nil, nil
	}

	ctx, span := g.tracer.Start(ctx, "Gate.Reserve")
	defer span.End()

	h := newHold(p.User.AccountID(), c.CurrencyID, amount)
	span.SetAttributes(
		attribute.String("hold_id", h.ID),
		attribute.Int64("amount", amount),
	)

	if err := g.ledger.SubtractAmount(ctx, h.AccountID, h.CurrencyID, amount, h.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, currency.ErrInsufficientBalance) {
			g.logger.Error(ctx, "Failed to reserve currency", err, map[string]interface{}{
				"command_id": cmd.ID,
				"account_id": h.AccountID,
				"amount":     amount,
			})
		}
		return nil, fmt.Errorf("failed to reserve currency: %w", err)
	}
	return h, nil
}

// Refund 確保した通貨を返金する
// 同じHoldに対する2回目以降の呼び出しと、確定済みのHoldに対する呼び出しは何もしない
func (g *Gate) Refund(ctx context.Context, h *Hold) error {
	if h == nil || !h.state.CompareAndSwap(holdActive, holdRefunding) {
		return nil
	}

	ctx, span := g.tracer.Start(ctx, "Gate.Refund")
	defer span.End()
	span.SetAttributes(attribute.String("hold_id", h.ID))

	if err := g.ledger.AddAmount(ctx, h.AccountID, h.CurrencyID, h.Amount, h.ID); err != nil {
		// 再試行できるように確保状態へ戻す
		h.state.Store(holdActive)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error(ctx, "Failed to refund hold", err, map[string]interface{}{
			"hold_id":    h.ID,
			"account_id": h.AccountID,
			"amount":     h.Amount,
		})
		return fmt.Errorf("failed to refund hold: %w", err)
	}
	h.state.Store(holdRefunded)

	g.logger.Info(ctx, "Hold refunded", map[string]interface{}{
		"hold_id":    h.ID,
		"account_id": h.AccountID,
		"amount":     h.Amount,
	})
	return nil
}

// Settle 確保を消費済みとして確定する。確定できた場合のみtrue
func (g *Gate) Settle(h *Hold) bool {
	return h != nil && h.state.CompareAndSwap(holdActive, holdSettled)
}

// CommitCooldown クールダウン期限を記録する
func (g *Gate) CommitCooldown(ctx context.Context, cmd *command.Command, p *command.Parameters) error {
	c := cmd.Requirements.Cooldown
	if c == nil || c.Duration <= 0 {
		return nil
	}
	key := c.Key(cmd.ID, p.User)
	if err := g.cooldowns.SetExpiry(ctx, key, g.now().Add(c.Duration)); err != nil {
		g.logger.Error(ctx, "Failed to commit cooldown", err, map[string]interface{}{
			"command_id": cmd.ID,
			"key":        key,
		})
		return fmt.Errorf("failed to commit cooldown: %w", err)
	}
	return nil
}

// Ledger ゲートが使う通貨台帳を返す
func (g *Gate) Ledger() port.Ledger {
	return g.ledger
}
