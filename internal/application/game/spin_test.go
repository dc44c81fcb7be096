package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainaction "command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/game"
	"command-server/internal/domain/user"
)

func newSpinCommand() *command.Command {
	return &command.Command{
		ID:       "spin",
		Name:     "spin",
		Triggers: []string{"spin"},
		Enabled:  true,
		Requirements: command.RequirementSet{
			Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true, Min: 1},
		},
		Game: &game.Settings{
			Type: game.TypeSpin,
			Spin: &game.SpinSettings{
				Outcomes: []game.Outcome{
					{
						Name:              "jackpot",
						RoleProbabilities: map[user.Role]float64{user.RoleUser: 0.1},
						Multiplier:        3,
						Actions:           []domainaction.Action{domainaction.NewChat("jackpot $gamepayout", false)},
					},
					{
						Name:              "win",
						RoleProbabilities: map[user.Role]float64{user.RoleUser: 0.4},
						Multiplier:        1.5,
						Actions:           []domainaction.Action{domainaction.NewChat("win $gamepayout", false)},
					},
					{
						Name:              "lose",
						RoleProbabilities: map[user.Role]float64{user.RoleUser: 0.5},
						Multiplier:        0,
						Actions:           []domainaction.Action{domainaction.NewChat("lose $gamebet", false)},
					},
				},
			},
		},
	}
}

func TestSpin_Play(t *testing.T) {
	tests := []struct {
		name        string
		roll        float64
		bet         string
		wantAlice   int64
		wantMessage string
	}{
		{name: "正常系: 大当たり", roll: 0.05, bet: "10", wantAlice: 120, wantMessage: "jackpot 30"},
		{name: "正常系: 当たり（端数切り捨て）", roll: 0.2, bet: "11", wantAlice: 105, wantMessage: "win 16"},
		{name: "正常系: はずれ", roll: 0.7, bet: "10", wantAlice: 90, wantMessage: "lose 10"},
		{name: "異常系: 残高不足", roll: 0.05, bet: "500", wantAlice: 100, wantMessage: "@alice You do not have the required 500 points"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(fixedRNG{v: tt.roll})
			s, err := NewSpin(newSpinCommand(), f.rt)
			require.NoError(t, err)

			p := command.NewParameters(alice, "chan", []string{tt.bet}, time.Now())
			require.NoError(t, s.Play(context.Background(), p))

			assert.Equal(t, tt.wantAlice, f.balance(alice))
			assert.True(t, f.chat.contains(tt.wantMessage))
		})
	}
}

func TestSpin_NoOutcome(t *testing.T) {
	f := newFixture(fixedRNG{v: 0.99})
	cmd := newSpinCommand()
	cmd.Game.Spin.Outcomes = cmd.Game.Spin.Outcomes[:2]
	s, err := NewSpin(cmd, f.rt)
	require.NoError(t, err)

	require.NoError(t, s.Play(context.Background(), command.NewParameters(alice, "chan", []string{"10"}, time.Now())))
	assert.Equal(t, int64(90), f.balance(alice))
}

func TestSpin_RefundOnPanic(t *testing.T) {
	f := newFixture(fixedRNG{panics: true})
	s, err := NewSpin(newSpinCommand(), f.rt)
	require.NoError(t, err)

	err = s.Play(context.Background(), command.NewParameters(alice, "chan", []string{"10"}, time.Now()))
	assert.Error(t, err)
	assert.Equal(t, int64(100), f.balance(alice))
}

func TestSpin_RefundOnPayoutFailure(t *testing.T) {
	f := newFixture(fixedRNG{v: 0.05})
	f.rt.Ledger = &failingLedger{Ledger: f.ledger, addPrefix: "spin_"}
	s, err := NewSpin(newSpinCommand(), f.rt)
	require.NoError(t, err)

	err = s.Play(context.Background(), command.NewParameters(alice, "chan", []string{"10"}, time.Now()))
	assert.ErrorIs(t, err, errLedgerDown)

	// 賭け金は返金され、分岐のアクションは実行されない
	assert.Equal(t, int64(100), f.balance(alice))
	assert.False(t, f.chat.contains("jackpot"))
	assert.True(t, f.chat.contains("@alice the spin could not be paid out"))
}

func TestNewSpin(t *testing.T) {
	f := newFixture(fixedRNG{})
	_, err := NewSpin(newDuelCommand(game.SelectionTargeted, nil), f.rt)
	assert.ErrorIs(t, err, ErrNotSpin)
}

func TestNewRunner(t *testing.T) {
	f := newFixture(fixedRNG{})

	r, err := NewRunner(newDuelCommand(game.SelectionTargeted, nil), f.rt)
	require.NoError(t, err)
	assert.IsType(t, &Duel{}, r)

	r, err = NewRunner(newSpinCommand(), f.rt)
	require.NoError(t, err)
	assert.IsType(t, &Spin{}, r)

	heist := newSpinCommand()
	heist.Game = &game.Settings{Type: game.TypeHeist}
	_, err = NewRunner(heist, f.rt)
	assert.ErrorIs(t, err, ErrUnsupportedGame)
}
