// Package twitch Twitch IRCによるチャットの受信と送信
package twitch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/adeithe/go-twitch/irc"

	"command-server/internal/application/command"
	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

var (
	// ErrNotConnected 接続前または切断後の送信
	ErrNotConnected = errors.New("twitch: not connected")
	// ErrWhisperUnavailable ウィスパーの送信先が設定されていない
	ErrWhisperUnavailable = errors.New("twitch: whispers are not configured")
)

// Whisperer ウィスパーの送信
type Whisperer interface {
	Whisper(ctx context.Context, from, to, text string) error
}

var _ port.ChatSink = (*Adapter)(nil)

// Config 接続設定
type Config struct {
	Username   string
	OAuthToken string
	Channels   []string
}

// MessageHandler 受信メッセージの処理
type MessageHandler func(ctx context.Context, msg command.Message) error

// Adapter Twitchチャットの受信と送信
// 送信は設定の先頭チャンネルに行う
type Adapter struct {
	cfg       Config
	logger    *otelinfra.Logger
	handler   MessageHandler
	whisperer Whisperer

	mu   sync.RWMutex
	conn *irc.Conn
}

// NewAdapter 新しいAdapterを作成
func NewAdapter(cfg Config, handler MessageHandler, logger *otelinfra.Logger) *Adapter {
	return &Adapter{cfg: cfg, handler: handler, logger: logger}
}

// WithWhisperer ウィスパーの送信先を設定して自身を返す
func (a *Adapter) WithWhisperer(w Whisperer) *Adapter {
	a.whisperer = w
	return a
}

// Start 接続してctxが終わるまで受信する
func (a *Adapter) Start(ctx context.Context) error {
	if len(a.cfg.Channels) == 0 {
		return errors.New("twitch: no channels configured")
	}
	if a.cfg.Username == "" || a.cfg.OAuthToken == "" {
		return errors.New("twitch: username and oauth token are required")
	}

	conn := &irc.Conn{}
	if err := conn.SetLogin(a.cfg.Username, a.cfg.OAuthToken); err != nil {
		return fmt.Errorf("twitch: set login: %w", err)
	}

	conn.OnMessage(func(cm irc.ChatMessage) {
		s := cm.Sender
		msg := toMessage(cm.Channel, cm.Text, s.ID, s.DisplayName, s.IsBroadcaster, s.IsModerator, s.IsVIP)
		if err := a.handler(ctx, msg); err != nil {
			a.logger.Error(ctx, "Failed to handle chat message", err, map[string]interface{}{
				"channel":  cm.Channel,
				"username": s.DisplayName,
			})
		}
	})

	if err := conn.Connect(); err != nil {
		return fmt.Errorf("twitch: connect: %w", err)
	}
	if err := conn.Join(a.cfg.Channels...); err != nil {
		conn.Close()
		return fmt.Errorf("twitch: join: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	a.logger.Info(ctx, "Connected to Twitch chat", map[string]interface{}{
		"username": a.cfg.Username,
		"channels": a.cfg.Channels,
	})

	<-ctx.Done()

	a.mu.Lock()
	a.conn = nil
	a.mu.Unlock()
	conn.Close()

	return ctx.Err()
}

// SendMessage チャンネルにメッセージを送る
// ボットアカウント1つで接続するため配信者としての送信もボットから行う
func (a *Adapter) SendMessage(_ context.Context, text string, _ bool) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Say(a.cfg.Channels[0], text)
}

// Whisper ボットアカウントからウィスパーを送る
// 送信先がなければ公開チャットには流さずエラーを返す
func (a *Adapter) Whisper(ctx context.Context, platform user.Platform, username, text string, _ bool) error {
	if platform != user.PlatformTwitch && platform != user.PlatformAll {
		return fmt.Errorf("twitch: unsupported platform %s", platform)
	}
	if a.whisperer == nil {
		return ErrWhisperUnavailable
	}
	return a.whisperer.Whisper(ctx, a.cfg.Username, strings.TrimPrefix(username, "@"), text)
}

func toMessage(channel, text string, id int64, displayName string, broadcaster, moderator, vip bool) command.Message {
	return command.Message{
		User: &user.User{
			ID:       strconv.FormatInt(id, 10),
			Username: displayName,
			Platform: user.PlatformTwitch,
			Role:     user.RoleFromFlags(broadcaster, moderator, vip, false),
		},
		Channel: channel,
		Text:    text,
	}
}
