package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"command-server/internal/application/action"
	"command-server/internal/application/requirement"
	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	"command-server/internal/infrastructure/persistence/memory"
)

type recordingChat struct {
	mu       sync.Mutex
	messages []string
	panicOn  string
}

func (c *recordingChat) SendMessage(_ context.Context, text string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicOn != "" && strings.Contains(text, c.panicOn) {
		panic("chat sink broken")
	}
	c.messages = append(c.messages, text)
	return nil
}

func (c *recordingChat) setPanicOn(sub string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panicOn = sub
}

func (c *recordingChat) Whisper(ctx context.Context, _ user.Platform, _, text string, _ bool) error {
	return c.SendMessage(ctx, text, false)
}

func (c *recordingChat) count(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func (c *recordingChat) contains(sub string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type fixedRNG struct {
	v      float64
	panics bool
}

func (r fixedRNG) NextUniform() float64 {
	if r.panics {
		panic("rng broken")
	}
	return r.v
}

func (r fixedRNG) IntN(int) int { return 0 }

// manualTimer テストから明示的に発火させるタイマー
type manualTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Fire 停止済みでもコールバックを呼ぶ（停止と発火の競合を再現する）
func (t *manualTimer) Fire() {
	t.fn()
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
	limits []time.Duration
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fn: f}
	c.timers = append(c.timers, t)
	c.limits = append(c.limits, d)
	return t
}

func (c *manualClock) last() *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

var (
	alice = &user.User{ID: "1", Username: "alice", Platform: user.PlatformTwitch, Role: user.RoleUser}
	bob   = &user.User{ID: "2", Username: "bob", Platform: user.PlatformTwitch, Role: user.RoleUser}
	carol = &user.User{ID: "3", Username: "carol", Platform: user.PlatformTwitch, Role: user.RoleUser}
)

type fixture struct {
	ledger *memory.Ledger
	chat   *recordingChat
	rt     Runtime
}

func newFixture(rng fixedRNG) *fixture {
	ledger := memory.NewLedger()
	ledger.SetBalance(alice.AccountID(), "points", 100)
	ledger.SetBalance(bob.AccountID(), "points", 50)
	ledger.SetBalance(carol.AccountID(), "points", 100)

	chat := &recordingChat{}
	logger := otelinfra.NewNopLogger()
	metrics := otelinfra.NewNopMetrics()
	gate := requirement.NewGate(ledger, memory.NewCooldownStore(), chat, logger, metrics,
		requirement.Options{CommitOnActionFailure: true})
	executor := action.NewExecutor(action.Dependencies{
		Chat:     chat,
		Ledger:   ledger,
		Resolver: action.NewResolver(nil, rng),
	}, logger, metrics)

	return &fixture{
		ledger: ledger,
		chat:   chat,
		rt: Runtime{
			Gate:    gate,
			Actions: executor,
			Chat:    chat,
			Ledger:  ledger,
			RNG:     rng,
			Logger:  logger,
			Metrics: metrics,
		},
	}
}

func (f *fixture) balance(u *user.User) int64 {
	b, _ := f.ledger.Balance(context.Background(), u.AccountID(), "points")
	return b
}

// failingLedger 指定した関連キー接頭辞の入金と精算を失敗させる台帳
type failingLedger struct {
	*memory.Ledger
	addPrefix  string
	settleFail bool
}

var errLedgerDown = errors.New("ledger down")

func (l *failingLedger) AddAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error {
	if l.addPrefix != "" && strings.HasPrefix(reference, l.addPrefix) {
		return errLedgerDown
	}
	return l.Ledger.AddAmount(ctx, accountID, currencyID, amount, reference)
}

func (l *failingLedger) Settle(ctx context.Context, s port.Settlement) error {
	if l.settleFail {
		return errLedgerDown
	}
	return l.Ledger.Settle(ctx, s)
}
