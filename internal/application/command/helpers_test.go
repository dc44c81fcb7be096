package command

import (
	"context"
	"strings"
	"sync"
	"time"

	"command-server/internal/application/action"
	"command-server/internal/application/requirement"
	domainaction "command-server/internal/domain/action"
	domain "command-server/internal/domain/command"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	"command-server/internal/infrastructure/persistence/memory"
	"command-server/internal/infrastructure/random"
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

func (c *recordingChat) Whisper(ctx context.Context, _ user.Platform, _, text string, _ bool) error {
	return c.SendMessage(ctx, text, false)
}

func (c *recordingChat) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

func (c *recordingChat) contains(sub string) bool {
	for _, m := range c.Messages() {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

var (
	alice = &user.User{ID: "1", Username: "alice", Platform: user.PlatformTwitch, Role: user.RoleUser}
	bob   = &user.User{ID: "2", Username: "bob", Platform: user.PlatformTwitch, Role: user.RoleModerator}
	carol = &user.User{ID: "3", Username: "carol", Platform: user.PlatformTwitch, Role: user.RoleUser}
)

type fixture struct {
	ledger    *memory.Ledger
	cooldowns *memory.CooldownStore
	chat      *recordingChat
	gate      *requirement.Gate
	engine    *Engine
}

func newFixture(commitOnFailure bool) *fixture {
	ledger := memory.NewLedger()
	ledger.SetBalance(alice.AccountID(), "points", 100)
	ledger.SetBalance(bob.AccountID(), "points", 100)

	cooldowns := memory.NewCooldownStore()
	chat := &recordingChat{}
	logger := otelinfra.NewNopLogger()
	metrics := otelinfra.NewNopMetrics()
	gate := requirement.NewGate(ledger, cooldowns, chat, logger, metrics,
		requirement.Options{CommitOnActionFailure: commitOnFailure})
	executor := action.NewExecutor(action.Dependencies{
		Chat:     chat,
		Ledger:   ledger,
		Resolver: action.NewResolver(nil, random.NewSeeded(1)),
	}, logger, metrics)

	return &fixture{
		ledger:    ledger,
		cooldowns: cooldowns,
		chat:      chat,
		gate:      gate,
		engine:    NewEngine(gate, executor, logger, metrics),
	}
}

func (f *fixture) balance(u *user.User) int64 {
	b, _ := f.ledger.Balance(context.Background(), u.AccountID(), "points")
	return b
}

func (f *fixture) onCooldown(key string) bool {
	exp, _ := f.cooldowns.Expiry(context.Background(), key)
	return exp.After(time.Now())
}

// newHugCommand 10ポイントで挨拶する30秒クールダウンのコマンド
func newHugCommand(actions ...domainaction.Action) *domain.Command {
	if len(actions) == 0 {
		actions = []domainaction.Action{domainaction.NewChat("$user hugs $targetuser", false)}
	}
	return &domain.Command{
		ID:       "hug",
		Name:     "Hug",
		Triggers: []string{"hug"},
		Actions:  actions,
		Enabled:  true,
		Requirements: domain.RequirementSet{
			Cooldown: &domain.CooldownRequirement{Duration: 30 * time.Second, Scope: domain.CooldownGlobal},
			Currency: &domain.CurrencyRequirement{CurrencyID: "points", Amount: 10},
		},
	}
}

func newParams(u *user.User, args ...string) *domain.Parameters {
	return domain.NewParameters(u, "stream", args, time.Now())
}
