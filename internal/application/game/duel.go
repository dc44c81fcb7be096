package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/application/requirement"
	domainaction "command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/currency"
	"command-server/internal/domain/game"
	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
)

// ErrNotDuel 決闘コマンドではない
var ErrNotDuel = errors.New("command is not a duel game")

const (
	stateOpen int32 = iota
	stateResolving
	stateClosed
)

// session 進行中の決闘（1コマンドにつき最大1つ）
type session struct {
	id        string
	params    *command.Parameters
	initiator *user.User
	target    *user.User
	bet       int64
	hold      *requirement.Hold
	createdAt time.Time
	deadline  time.Time
	timer     Timer

	state atomic.Int32
}

// SessionInfo 進行中の決闘の読み取り専用スナップショット
type SessionInfo struct {
	ID        string
	Initiator string
	Target    string
	Bet       int64
	CreatedAt time.Time
	Deadline  time.Time
}

// Duel 決闘ゲーム
// 状態遷移はmuで直列化し、受諾とタイムアウトの競合はセッションの状態のCASで1回だけ解決する
type Duel struct {
	rt        Runtime
	cmd       *command.Command
	settings  *game.DuelSettings
	afterFunc AfterFunc
	now       func() time.Time
	tracer    trace.Tracer

	mu      sync.Mutex
	session *session
}

// NewDuel 決闘コマンドのランナーを作成
func NewDuel(cmd *command.Command, rt Runtime) (*Duel, error) {
	if cmd.Game == nil || cmd.Game.Type != game.TypeDuel || cmd.Game.Duel == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDuel, cmd.ID)
	}
	if cmd.Requirements.Currency == nil {
		return nil, fmt.Errorf("%w: %s has no currency requirement", command.ErrInvalidCommand, cmd.ID)
	}
	return &Duel{
		rt:        rt,
		cmd:       cmd,
		settings:  cmd.Game.Duel,
		afterFunc: realAfterFunc,
		now:       time.Now,
		tracer:    otel.Tracer("duel-game"),
	}, nil
}

// Session 進行中の決闘を返す
func (d *Duel) Session() (SessionInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.session
	if s == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		ID:        s.id,
		Initiator: s.initiator.Username,
		Target:    s.target.Username,
		Bet:       s.bet,
		CreatedAt: s.createdAt,
		Deadline:  s.deadline,
	}, true
}

// Play コマンドの呼び出しを処理する
// 待機中なら挑戦を開始し、進行中なら相手の受諾として解決するか「進行中」を返す
func (d *Duel) Play(ctx context.Context, p *command.Parameters) (err error) {
	ctx, span := d.tracer.Start(ctx, "Duel.Play")
	defer span.End()
	span.SetAttributes(
		attribute.String("command_id", d.cmd.ID),
		attribute.String("account_id", p.User.AccountID()),
	)

	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.session
	// 開始と受諾の途中で起きた失敗だけがセッションを破棄する
	transitioning := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("duel %s panicked: %v", d.cmd.ID, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.rt.Logger.Error(ctx, "Duel failed unexpectedly", err, map[string]interface{}{
				"command_id":    d.cmd.ID,
				"transitioning": transitioning,
			})
			if !transitioning {
				return
			}
			if s == nil {
				s = d.session
			}
			d.abortLocked(ctx, s)
		}
	}()

	if s == nil {
		transitioning = true
		return d.start(ctx, p)
	}
	if s.state.Load() == stateOpen && p.User.Is(s.target) {
		transitioning = true
		return d.accept(ctx, s)
	}

	d.rt.say(ctx, msgAlreadyUnderway(p.User.Mention()))
	d.rt.Metrics.RecordGame(ctx, string(game.TypeDuel), "rejected")
	return nil
}

// start 待機中の挑戦を開始する（mu保持中）
func (d *Duel) start(ctx context.Context, p *command.Parameters) error {
	res := d.rt.Gate.Validate(ctx, d.cmd, p)
	if !res.OK {
		d.rt.Gate.Notify(ctx, res, p)
		return res.Err
	}
	bet := res.Amount
	if bet <= 0 {
		d.rt.say(ctx, msgInvalidBet(p.User.Mention()))
		return nil
	}

	target := d.selectTarget(p)
	if target == nil {
		d.rt.say(ctx, msgUserNotFound(p.User.Mention()))
		return nil
	}

	currencyID := d.cmd.Requirements.Currency.CurrencyID
	ok, err := d.rt.Ledger.HasAmount(ctx, target.AccountID(), currencyID, bet)
	if err != nil {
		return fmt.Errorf("failed to check target balance: %w", err)
	}
	if !ok {
		d.rt.say(ctx, msgTargetInsufficient(p.User.Mention(), target.Username))
		return nil
	}

	hold, err := d.rt.Gate.Reserve(ctx, d.cmd, p, bet)
	if err != nil {
		if errors.Is(err, currency.ErrInsufficientBalance) {
			d.rt.Gate.Notify(ctx, requirementFailure(bet, currencyID), p)
			return nil
		}
		return err
	}

	now := d.now()
	s := &session{
		id:        uuid.NewString(),
		params:    p.WithTarget(target),
		initiator: p.User,
		target:    target,
		bet:       bet,
		hold:      hold,
		createdAt: now,
		deadline:  now.Add(d.settings.TimeLimit),
	}
	s.state.Store(stateOpen)
	p.SetIdentifier(game.IdentifierBet, strconv.FormatInt(bet, 10))
	p.SetIdentifier(game.IdentifierTargetUser, target.Username)
	p.SetIdentifier(game.IdentifierTargetUsername, target.Username)

	d.session = s
	timeoutCtx := context.WithoutCancel(ctx)
	s.timer = d.afterFunc(d.settings.TimeLimit, func() { d.timeout(timeoutCtx, s) })

	d.rt.Logger.Info(ctx, "Duel started", map[string]interface{}{
		"command_id": d.cmd.ID,
		"session_id": s.id,
		"initiator":  s.initiator.AccountID(),
		"target":     target.AccountID(),
		"bet":        bet,
	})
	d.rt.Metrics.RecordGame(ctx, string(game.TypeDuel), "started")

	d.run(ctx, "started", d.settings.Started, p)
	return nil
}

func (d *Duel) selectTarget(p *command.Parameters) *user.User {
	var target *user.User
	switch d.settings.SelectionType {
	case game.SelectionRandom:
		if d.rt.Presence != nil {
			target, _ = d.rt.Presence.Random(p.Platform, p.User, d.rt.RNG)
		}
	default:
		target = p.Target
	}
	if target == nil || target.Is(p.User) {
		return nil
	}
	return target
}

// accept 相手の受諾で決闘を解決する（mu保持中）
func (d *Duel) accept(ctx context.Context, s *session) error {
	if !s.state.CompareAndSwap(stateOpen, stateResolving) {
		return nil
	}
	s.timer.Stop()
	defer d.close(s)

	p := s.params
	currencyID := d.cmd.Requirements.Currency.CurrencyID
	v := d.rt.RNG.NextUniform()
	initiatorWins := v <= d.settings.Success.ProbabilityFor(s.initiator.Role)

	settlement := port.Settlement{
		WinnerID:   s.target.AccountID(),
		LoserID:    s.initiator.AccountID(),
		CurrencyID: currencyID,
		Stake:      0,
		Escrow:     s.bet,
		Reference:  s.hold.ID,
	}
	if initiatorWins {
		settlement = port.Settlement{
			WinnerID:   s.initiator.AccountID(),
			LoserID:    s.target.AccountID(),
			CurrencyID: currencyID,
			Stake:      s.bet,
			Escrow:     s.bet,
			Reference:  s.hold.ID,
		}
	}

	if err := d.rt.Ledger.Settle(ctx, settlement); err != nil {
		d.rt.Logger.Error(ctx, "Failed to settle duel", err, map[string]interface{}{
			"command_id": d.cmd.ID,
			"session_id": s.id,
		})
		if rerr := d.rt.Gate.Refund(ctx, s.hold); rerr != nil {
			err = errors.Join(err, rerr)
		}
		d.rt.say(ctx, msgSettleFailed(s.initiator.Mention()))
		d.rt.Metrics.RecordGame(ctx, string(game.TypeDuel), "settle_failed")
		return err
	}
	d.rt.Gate.Settle(s.hold)

	p.SetIdentifier(game.IdentifierPayout, strconv.FormatInt(s.bet, 10))

	outcome := "failed"
	branch := d.settings.Failed
	if initiatorWins {
		outcome = "success"
		branch = d.settings.Success.Actions
	}
	d.rt.Logger.Info(ctx, "Duel resolved", map[string]interface{}{
		"command_id": d.cmd.ID,
		"session_id": s.id,
		"outcome":    outcome,
		"roll":       v,
	})
	d.rt.Metrics.RecordGame(ctx, string(game.TypeDuel), outcome)

	d.run(ctx, outcome, branch, p)
	d.commitCooldown(ctx, p)
	return nil
}

// timeout 期限切れで決闘を解決する（タイマーのgoroutineから呼ばれる）
func (d *Duel) timeout(ctx context.Context, s *session) {
	if !s.state.CompareAndSwap(stateOpen, stateResolving) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			d.rt.Logger.Error(ctx, "Duel timeout failed unexpectedly", fmt.Errorf("%v", r), map[string]interface{}{
				"command_id": d.cmd.ID,
				"session_id": s.id,
			})
			d.abortLocked(ctx, s)
		}
	}()
	defer d.close(s)

	d.rt.Logger.Info(ctx, "Duel not accepted", map[string]interface{}{
		"command_id": d.cmd.ID,
		"session_id": s.id,
	})
	d.rt.Metrics.RecordGame(ctx, string(game.TypeDuel), "not_accepted")

	d.run(ctx, "not_accepted", d.settings.NotAccepted, s.params)
	if err := d.rt.Gate.Refund(ctx, s.hold); err != nil {
		d.rt.Logger.Error(ctx, "Failed to refund duel bet", err, map[string]interface{}{
			"command_id": d.cmd.ID,
			"session_id": s.id,
		})
	}
	d.commitCooldown(ctx, s.params)
}

// close セッションを終了して待機状態に戻す（mu保持中）
func (d *Duel) close(s *session) {
	s.state.Store(stateClosed)
	if d.session == s {
		d.session = nil
	}
}

// abortLocked 予期しない失敗の後に確保を返金して待機状態に戻す（mu保持中）
func (d *Duel) abortLocked(ctx context.Context, s *session) {
	if s == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if err := d.rt.Gate.Refund(ctx, s.hold); err != nil {
		d.rt.Logger.Error(ctx, "Failed to refund duel bet after failure", err, map[string]interface{}{
			"command_id": d.cmd.ID,
			"session_id": s.id,
		})
	}
	d.close(s)
}

func (d *Duel) run(ctx context.Context, branch string, actions []domainaction.Action, p *command.Parameters) {
	d.rt.run(ctx, d.cmd, branch, actions, p)
}

func (d *Duel) commitCooldown(ctx context.Context, p *command.Parameters) {
	// 失敗はGate側でログ済み
	_ = d.rt.Gate.CommitCooldown(ctx, d.cmd, p)
}
