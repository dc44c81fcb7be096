package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "command-server/internal/domain/command"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// ErrUnknownTrigger トリガーに一致するコマンドがない
var ErrUnknownTrigger = errors.New("unknown trigger")

// Message チャットから届いた1メッセージ
type Message struct {
	User    *user.User
	Channel string
	Text    string
}

// Performer コマンドの実行
type Performer interface {
	Perform(ctx context.Context, cmd *domain.Command, p *domain.Parameters) error
}

// Presence 視聴者の発言記録と検索
type Presence interface {
	Touch(u *user.User)
	Lookup(platform user.Platform, username string) (*user.User, bool)
}

// Moderator コマンドとして扱ってよいメッセージかを判定する
type Moderator interface {
	Allow(ctx context.Context, msg Message) bool
}

// Directory 発言記録にない視聴者の検索
type Directory interface {
	LookupUser(ctx context.Context, platform user.Platform, username string) (*user.User, bool)
}

// Dispatcher チャットメッセージをコマンドに振り分ける
type Dispatcher struct {
	prefix    string
	catalog   *domain.Catalog
	engine    Performer
	presence  Presence
	moderator Moderator
	directory Directory
	logger    *otelinfra.Logger
	now       func() time.Time
}

// NewDispatcher 新しいDispatcherを作成
func NewDispatcher(prefix string, catalog *domain.Catalog, engine Performer, presence Presence, logger *otelinfra.Logger) *Dispatcher {
	return &Dispatcher{
		prefix:   prefix,
		catalog:  catalog,
		engine:   engine,
		presence: presence,
		logger:   logger,
		now:      time.Now,
	}
}

// WithModerator モデレーション判定を設定して自身を返す
func (d *Dispatcher) WithModerator(m Moderator) *Dispatcher {
	d.moderator = m
	return d
}

// WithDirectory 対象ユーザー検索の問い合わせ先を設定して自身を返す
func (d *Dispatcher) WithDirectory(dir Directory) *Dispatcher {
	d.directory = dir
	return d
}

// HandleMessage メッセージを処理する
// 接頭辞のないメッセージと未知のトリガーは発言記録のみで終わる
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message) error {
	if msg.User == nil {
		return nil
	}
	d.presence.Touch(msg.User)

	if msg.User.Role == user.RoleBanned {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, d.prefix) {
		return nil
	}
	parts := strings.Fields(strings.TrimPrefix(text, d.prefix))
	if len(parts) == 0 {
		return nil
	}

	if d.moderator != nil && !d.moderator.Allow(ctx, msg) {
		d.logger.Info(ctx, "Message blocked by moderation", map[string]interface{}{
			"account_id": msg.User.AccountID(),
		})
		return nil
	}

	err := d.Run(ctx, parts[0], msg.User, msg.Channel, parts[1:])
	if errors.Is(err, ErrUnknownTrigger) {
		return nil
	}
	return err
}

// Run トリガーでコマンドを実行する（チャット以外の経路からも使う）
func (d *Dispatcher) Run(ctx context.Context, trigger string, u *user.User, channel string, args []string) error {
	cmd, ok := d.catalog.Lookup(trigger)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}

	p := domain.NewParameters(u, channel, args, d.now())
	if target := d.resolveTarget(ctx, u, args); target != nil {
		p.WithTarget(target)
	}

	d.logger.Debug(ctx, "Dispatching command", map[string]interface{}{
		"command_id": cmd.ID,
		"account_id": u.AccountID(),
		"args":       len(args),
	})
	return d.engine.Perform(ctx, cmd, p)
}

// resolveTarget 最初の引数を対象ユーザーとして解決する
// 発言記録になければ、@付きの指定に限り問い合わせ先を引く
func (d *Dispatcher) resolveTarget(ctx context.Context, u *user.User, args []string) *user.User {
	if len(args) == 0 {
		return nil
	}
	if target, ok := d.presence.Lookup(u.Platform, args[0]); ok {
		return target
	}
	if d.directory == nil || !strings.HasPrefix(args[0], "@") {
		return nil
	}
	target, ok := d.directory.LookupUser(ctx, u.Platform, strings.TrimPrefix(args[0], "@"))
	if !ok {
		return nil
	}
	return target
}
