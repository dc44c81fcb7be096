package requirement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	"command-server/internal/infrastructure/persistence/memory"
)

type recordingChat struct {
	mu       sync.Mutex
	messages []string
}

func (c *recordingChat) SendMessage(_ context.Context, text string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}

func (c *recordingChat) Whisper(_ context.Context, _ user.Platform, _, text string, _ bool) error {
	return c.SendMessage(context.Background(), text, false)
}

func (c *recordingChat) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

// MockLedger 通貨台帳のモック
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context, accountID, currencyID string) (int64, error) {
	args := m.Called(ctx, accountID, currencyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) HasAmount(ctx context.Context, accountID, currencyID string, amount int64) (bool, error) {
	args := m.Called(ctx, accountID, currencyID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) AddAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error {
	args := m.Called(ctx, accountID, currencyID, amount, reference)
	return args.Error(0)
}

func (m *MockLedger) SubtractAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error {
	args := m.Called(ctx, accountID, currencyID, amount, reference)
	return args.Error(0)
}

func (m *MockLedger) Settle(ctx context.Context, s port.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func newTestGate(ledger port.Ledger, chat port.ChatSink) *Gate {
	return NewGate(ledger, memory.NewCooldownStore(), chat,
		otelinfra.NewNopLogger(), otelinfra.NewNopMetrics(),
		Options{ErrorCooldown: 10 * time.Second, CommitOnActionFailure: true})
}

func testUser(id string, role user.Role) *user.User {
	return &user.User{ID: id, Username: "user" + id, Platform: user.PlatformTwitch, Role: role}
}

func testParams(u *user.User, args ...string) *command.Parameters {
	return command.NewParameters(u, "chan", args, time.Now())
}

func TestGate_Validate(t *testing.T) {
	tests := []struct {
		name       string
		reqs       command.RequirementSet
		role       user.Role
		balance    int64
		args       []string
		cooldown   bool
		wantOK     bool
		wantKind   command.RequirementKind
		wantAmount int64
	}{
		{
			name:   "正常系: 要件なし",
			role:   user.RoleUser,
			wantOK: true,
		},
		{
			name:     "異常系: 権限不足",
			reqs:     command.RequirementSet{Role: &command.RoleRequirement{Minimum: user.RoleModerator}},
			role:     user.RoleVIP,
			wantKind: command.RequirementRole,
		},
		{
			name:   "正常系: 権限を満たす",
			reqs:   command.RequirementSet{Role: &command.RoleRequirement{Minimum: user.RoleModerator}},
			role:   user.RoleStreamer,
			wantOK: true,
		},
		{
			name:     "異常系: クールダウン中",
			reqs:     command.RequirementSet{Cooldown: &command.CooldownRequirement{Duration: time.Minute, Scope: command.CooldownGlobal}},
			role:     user.RoleUser,
			cooldown: true,
			wantKind: command.RequirementCooldown,
		},
		{
			name:       "正常系: 固定コスト",
			reqs:       command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Amount: 10}},
			role:       user.RoleUser,
			balance:    10,
			wantOK:     true,
			wantAmount: 10,
		},
		{
			name:     "異常系: 残高不足",
			reqs:     command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Amount: 10}},
			role:     user.RoleUser,
			balance:  9,
			wantKind: command.RequirementCurrency,
		},
		{
			name:       "正常系: 引数の賭け金",
			reqs:       command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true, Min: 1, Max: 50}},
			role:       user.RoleUser,
			balance:    100,
			args:       []string{"@bob", "30"},
			wantOK:     true,
			wantAmount: 30,
		},
		{
			name:       "正常系: allは上限で切り詰める",
			reqs:       command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true, Max: 50}},
			role:       user.RoleUser,
			balance:    100,
			args:       []string{"all"},
			wantOK:     true,
			wantAmount: 50,
		},
		{
			name:     "異常系: 賭け金0",
			reqs:     command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true}},
			role:     user.RoleUser,
			balance:  100,
			args:     []string{"@bob", "0"},
			wantKind: command.RequirementCurrency,
		},
		{
			name:     "異常系: 賭け金なし",
			reqs:     command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true}},
			role:     user.RoleUser,
			balance:  100,
			args:     []string{"@bob"},
			wantKind: command.RequirementCurrency,
		},
		{
			name:     "異常系: 賭け金が上限超過",
			reqs:     command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Bet: true, Max: 50}},
			role:     user.RoleUser,
			balance:  100,
			args:     []string{"60"},
			wantKind: command.RequirementCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ledger := memory.NewLedger()
			g := newTestGate(ledger, &recordingChat{})

			u := testUser("1", tt.role)
			ledger.SetBalance(u.AccountID(), "points", tt.balance)
			cmd := &command.Command{ID: "cmd", Name: "cmd", Triggers: []string{"cmd"}, Requirements: tt.reqs, Enabled: true}
			p := testParams(u, tt.args...)

			if tt.cooldown {
				require.NoError(t, g.CommitCooldown(ctx, cmd, p))
			}

			res := g.Validate(ctx, cmd, p)
			assert.Equal(t, tt.wantOK, res.OK)
			if tt.wantOK {
				assert.Equal(t, tt.wantAmount, res.Amount)
			} else {
				assert.Equal(t, tt.wantKind, res.Kind)
				assert.NotEmpty(t, res.Reason)
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestGate_Validate_ShortCircuit(t *testing.T) {
	ledger := new(MockLedger)
	g := newTestGate(ledger, &recordingChat{})

	cmd := &command.Command{
		ID: "cmd", Name: "cmd", Triggers: []string{"cmd"},
		Requirements: command.RequirementSet{
			Role:     &command.RoleRequirement{Minimum: user.RoleModerator},
			Currency: &command.CurrencyRequirement{CurrencyID: "points", Amount: 10},
		},
	}

	res := g.Validate(context.Background(), cmd, testParams(testUser("1", user.RoleUser)))
	assert.False(t, res.OK)
	assert.Equal(t, command.RequirementRole, res.Kind)
	ledger.AssertNotCalled(t, "HasAmount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGate_Validate_LedgerError(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("HasAmount", mock.Anything, "twitch.1", "points", int64(10)).Return(false, errors.New("db down"))
	g := newTestGate(ledger, &recordingChat{})

	cmd := &command.Command{
		ID: "cmd", Name: "cmd", Triggers: []string{"cmd"},
		Requirements: command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Amount: 10}},
	}

	res := g.Validate(context.Background(), cmd, testParams(testUser("1", user.RoleUser)))
	assert.False(t, res.OK)
	assert.Equal(t, command.RequirementCurrency, res.Kind)
	assert.Error(t, res.Err)
}

func TestGate_Cooldown_PerUser(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(memory.NewLedger(), &recordingChat{})
	cmd := &command.Command{
		ID: "cmd", Name: "cmd", Triggers: []string{"cmd"},
		Requirements: command.RequirementSet{Cooldown: &command.CooldownRequirement{Duration: time.Minute, Scope: command.CooldownPerUser}},
	}
	alice := testParams(testUser("1", user.RoleUser))
	bob := testParams(testUser("2", user.RoleUser))

	require.NoError(t, g.CommitCooldown(ctx, cmd, alice))
	assert.False(t, g.Validate(ctx, cmd, alice).OK)
	assert.True(t, g.Validate(ctx, cmd, bob).OK)

	// 期限が過ぎれば再び実行できる
	g.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.True(t, g.Validate(ctx, cmd, alice).OK)
}

func TestGate_Notify_Throttle(t *testing.T) {
	ctx := context.Background()
	chat := &recordingChat{}
	g := newTestGate(memory.NewLedger(), chat)
	base := time.Now()
	g.now = func() time.Time { return base }

	alice := testParams(testUser("1", user.RoleUser))
	bob := testParams(testUser("2", user.RoleUser))
	roleFail := fail(command.RequirementRole, "no permission")
	cooldownFail := fail(command.RequirementCooldown, "on cooldown")

	g.Notify(ctx, roleFail, alice)
	// 同じ種類はユーザーが違っても抑制される
	g.Notify(ctx, roleFail, bob)
	// 種類が違えば送られる
	g.Notify(ctx, cooldownFail, bob)
	// 成功結果は送らない
	g.Notify(ctx, pass(0), bob)

	assert.Equal(t, []string{"@user1 no permission", "@user2 on cooldown"}, chat.Messages())

	g.now = func() time.Time { return base.Add(11 * time.Second) }
	g.Notify(ctx, roleFail, bob)
	assert.Len(t, chat.Messages(), 3)
}

func TestGate_ReserveRefund(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	g := newTestGate(ledger, &recordingChat{})

	u := testUser("1", user.RoleUser)
	ledger.SetBalance(u.AccountID(), "points", 100)
	cmd := &command.Command{
		ID: "cmd", Name: "cmd", Triggers: []string{"cmd"},
		Requirements: command.RequirementSet{Currency: &command.CurrencyRequirement{CurrencyID: "points", Amount: 30}},
	}
	p := testParams(u)

	t.Run("正常系: 返金は1回だけ", func(t *testing.T) {
		h, err := g.Reserve(ctx, cmd, p, 30)
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.True(t, h.Active())

		b, _ := ledger.Balance(ctx, u.AccountID(), "points")
		assert.Equal(t, int64(70), b)

		require.NoError(t, g.Refund(ctx, h))
		require.NoError(t, g.Refund(ctx, h))
		assert.True(t, h.Refunded())
		assert.False(t, g.Settle(h))

		b, _ = ledger.Balance(ctx, u.AccountID(), "points")
		assert.Equal(t, int64(100), b)
	})

	t.Run("正常系: 確定後の返金は何もしない", func(t *testing.T) {
		h, err := g.Reserve(ctx, cmd, p, 30)
		require.NoError(t, err)
		assert.True(t, g.Settle(h))
		require.NoError(t, g.Refund(ctx, h))

		b, _ := ledger.Balance(ctx, u.AccountID(), "points")
		assert.Equal(t, int64(70), b)
		require.NoError(t, ledger.AddAmount(ctx, u.AccountID(), "points", 30, "reset"))
	})

	t.Run("正常系: 同時に返金しても1回だけ", func(t *testing.T) {
		h, err := g.Reserve(ctx, cmd, p, 30)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = g.Refund(ctx, h)
			}()
		}
		wg.Wait()

		b, _ := ledger.Balance(ctx, u.AccountID(), "points")
		assert.Equal(t, int64(100), b)
	})

	t.Run("正常系: コストなしは確保しない", func(t *testing.T) {
		h, err := g.Reserve(ctx, cmd, p, 0)
		require.NoError(t, err)
		assert.Nil(t, h)
		assert.NoError(t, g.Refund(ctx, h))
		assert.False(t, g.Settle(h))
	})

	t.Run("異常系: 残高不足", func(t *testing.T) {
		h, err := g.Reserve(ctx, cmd, p, 1000)
		assert.Error(t, err)
		assert.Nil(t, h)
	})
}

func TestGate_Refund_RetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	ledger := new(MockLedger)
	g := newTestGate(ledger, &recordingChat{})

	h := newHold("twitch.1", "points", 30)
	ledger.On("AddAmount", mock.Anything, "twitch.1", "points", int64(30), h.ID).Return(errors.New("db down")).Once()
	ledger.On("AddAmount", mock.Anything, "twitch.1", "points", int64(30), h.ID).Return(nil).Once()

	assert.Error(t, g.Refund(ctx, h))
	assert.True(t, h.Active())

	require.NoError(t, g.Refund(ctx, h))
	require.NoError(t, g.Refund(ctx, h))
	assert.True(t, h.Refunded())
	ledger.AssertNumberOfCalls(t, "AddAmount", 2)
}
