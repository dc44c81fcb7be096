package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainaction "command-server/internal/domain/action"
	domain "command-server/internal/domain/command"
	"command-server/internal/domain/game"
	"command-server/internal/domain/user"
)

type fakeRunner struct {
	calls int
	err   error
}

func (r *fakeRunner) Play(context.Context, *domain.Parameters) error {
	r.calls++
	return r.err
}

func TestEngine_Perform(t *testing.T) {
	f := newFixture(true)
	cmd := newHugCommand()

	require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(alice).WithTarget(bob)))
	assert.Equal(t, int64(90), f.balance(alice))
	assert.True(t, f.chat.contains("alice hugs bob"))
	assert.True(t, f.onCooldown("hug"))

	// クールダウン中は何も起きない
	require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(bob)))
	assert.Equal(t, int64(100), f.balance(bob))
	assert.True(t, f.chat.contains("@bob Hug is on cooldown"))
}

func TestEngine_Perform_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Command)
		invoker *user.User
		reason  string
	}{
		{
			name:    "異常系: 権限不足",
			mutate:  func(c *domain.Command) { c.Requirements.Role = &domain.RoleRequirement{Minimum: user.RoleModerator} },
			invoker: alice,
			reason:  "@alice You must be at least moderator to use Hug",
		},
		{
			name:    "異常系: 残高不足",
			mutate:  func(c *domain.Command) { c.Requirements.Currency.Amount = 500 },
			invoker: alice,
			reason:  "@alice You do not have the required 500 points",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			cmd := newHugCommand()
			tt.mutate(cmd)

			require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(tt.invoker)))
			assert.Equal(t, []string{tt.reason}, f.chat.Messages())
			assert.Equal(t, int64(100), f.balance(tt.invoker))
			assert.False(t, f.onCooldown("hug"))
		})
	}
}

func TestEngine_Perform_Disabled(t *testing.T) {
	f := newFixture(true)
	cmd := newHugCommand()
	cmd.Enabled = false

	require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(alice)))
	assert.Empty(t, f.chat.Messages())
	assert.Equal(t, int64(100), f.balance(alice))
}

func TestEngine_Perform_ActionFailure(t *testing.T) {
	tests := []struct {
		name            string
		commitOnFailure bool
		wantCooldown    bool
	}{
		{name: "正常系: 失敗してもクールダウンを記録", commitOnFailure: true, wantCooldown: true},
		{name: "正常系: 失敗時はクールダウンを記録しない", commitOnFailure: false, wantCooldown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.commitOnFailure)
			// オーバーレイ未設定のため1つ目は失敗し、2つ目は実行される
			cmd := newHugCommand(
				domainaction.NewOverlay("hug", domainaction.OverlayShow, nil),
				domainaction.NewChat("still here", false),
			)

			require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(alice)))
			assert.Equal(t, []string{"still here"}, f.chat.Messages())
			assert.Equal(t, int64(90), f.balance(alice))
			assert.Equal(t, tt.wantCooldown, f.onCooldown("hug"))
		})
	}
}

func TestEngine_Perform_Cancelled(t *testing.T) {
	f := newFixture(true)
	cmd := newHugCommand(domainaction.NewWait(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.engine.Perform(ctx, cmd, newParams(alice))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(100), f.balance(alice))
	assert.False(t, f.onCooldown("hug"))
}

func TestEngine_Perform_Game(t *testing.T) {
	f := newFixture(true)
	cmd := newHugCommand()
	cmd.Game = &game.Settings{Type: game.TypeDuel}

	// ランナー未登録なら何もしない
	require.NoError(t, f.engine.Perform(context.Background(), cmd, newParams(alice)))
	assert.Empty(t, f.chat.Messages())

	runner := &fakeRunner{err: errors.New("boom")}
	f.engine.RegisterGame(cmd.ID, runner)

	err := f.engine.Perform(context.Background(), cmd, newParams(alice))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, runner.calls)
	// 要件チェックと課金はランナー側の責務
	assert.Equal(t, int64(100), f.balance(alice))
}
