package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/domain/command"
	"command-server/internal/domain/currency"
	"command-server/internal/domain/game"
)

// ErrNotSpin スピンコマンドではない
var ErrNotSpin = errors.New("command is not a spin game")

// Spin スピンゲーム
// 1回の呼び出しで完結し、賭け金×倍率を払い戻す
type Spin struct {
	rt       Runtime
	cmd      *command.Command
	settings *game.SpinSettings
	tracer   trace.Tracer
}

// NewSpin スピンコマンドのランナーを作成
func NewSpin(cmd *command.Command, rt Runtime) (*Spin, error) {
	if cmd.Game == nil || cmd.Game.Type != game.TypeSpin || cmd.Game.Spin == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSpin, cmd.ID)
	}
	if cmd.Requirements.Currency == nil {
		return nil, fmt.Errorf("%w: %s has no currency requirement", command.ErrInvalidCommand, cmd.ID)
	}
	return &Spin{
		rt:       rt,
		cmd:      cmd,
		settings: cmd.Game.Spin,
		tracer:   otel.Tracer("spin-game"),
	}, nil
}

// Play 賭け金を確保して結果を抽選し、払い戻す
func (s *Spin) Play(ctx context.Context, p *command.Parameters) (err error) {
	ctx, span := s.tracer.Start(ctx, "Spin.Play")
	defer span.End()
	span.SetAttributes(
		attribute.String("command_id", s.cmd.ID),
		attribute.String("account_id", p.User.AccountID()),
	)

	res := s.rt.Gate.Validate(ctx, s.cmd, p)
	if !res.OK {
		s.rt.Gate.Notify(ctx, res, p)
		return res.Err
	}
	bet := res.Amount
	if bet <= 0 {
		s.rt.say(ctx, msgInvalidBet(p.User.Mention()))
		return nil
	}

	currencyID := s.cmd.Requirements.Currency.CurrencyID
	hold, err := s.rt.Gate.Reserve(ctx, s.cmd, p, bet)
	if err != nil {
		if errors.Is(err, currency.ErrInsufficientBalance) {
			s.rt.Gate.Notify(ctx, requirementFailure(bet, currencyID), p)
			return nil
		}
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("spin %s panicked: %v", s.cmd.ID, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.rt.Logger.Error(ctx, "Spin failed unexpectedly", err, map[string]interface{}{
				"command_id": s.cmd.ID,
			})
			_ = s.rt.Gate.Refund(ctx, hold)
		}
	}()

	outcome, ok := s.pick(p)
	payout := int64(0)
	if ok {
		payout = int64(math.Floor(float64(bet) * outcome.Multiplier))
	}

	// 払い戻しが済むまで確保は確定しない。失敗時は賭け金を返金する
	if payout > 0 {
		if err := s.rt.Ledger.AddAmount(ctx, p.User.AccountID(), currencyID, payout, "spin_"+hold.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.rt.Logger.Error(ctx, "Failed to pay out spin", err, map[string]interface{}{
				"command_id": s.cmd.ID,
				"payout":     payout,
			})
			if rerr := s.rt.Gate.Refund(ctx, hold); rerr != nil {
				err = errors.Join(err, rerr)
			}
			s.rt.say(ctx, msgPayoutFailed(p.User.Mention()))
			s.rt.Metrics.RecordGame(ctx, string(game.TypeSpin), "payout_failed")
			return fmt.Errorf("failed to pay out spin: %w", err)
		}
	}
	s.rt.Gate.Settle(hold)

	p.SetIdentifier(game.IdentifierBet, strconv.FormatInt(bet, 10))
	p.SetIdentifier(game.IdentifierPayout, strconv.FormatInt(payout, 10))

	name := "none"
	if ok {
		name = outcome.Name
		s.rt.run(ctx, s.cmd, name, outcome.Actions, p)
	}
	s.rt.Logger.Info(ctx, "Spin resolved", map[string]interface{}{
		"command_id": s.cmd.ID,
		"outcome":    name,
		"bet":        bet,
		"payout":     payout,
	})
	s.rt.Metrics.RecordGame(ctx, string(game.TypeSpin), name)

	// 失敗はGate側でログ済み
	_ = s.rt.Gate.CommitCooldown(ctx, s.cmd, p)
	return nil
}

// pick 結果を確率の累積で1つ選ぶ。どれにも当たらなければfalse
func (s *Spin) pick(p *command.Parameters) (game.Outcome, bool) {
	v := s.rt.RNG.NextUniform()
	cumulative := 0.0
	for _, o := range s.settings.Outcomes {
		cumulative += o.ProbabilityFor(p.User.Role)
		if v < cumulative {
			return o, true
		}
	}
	return game.Outcome{}, false
}
