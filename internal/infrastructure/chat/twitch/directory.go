package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/nicklaw5/helix/v2"

	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// ErrUserNotFound Twitchに存在しないログイン名
var ErrUserNotFound = errors.New("twitch: user not found")

// HelixConfig Helix API接続設定
type HelixConfig struct {
	ClientID    string
	AccessToken string
	// APIBaseURL 空ならHelixの既定URL
	APIBaseURL string
}

// Directory Helix APIによるユーザー検索とウィスパー送信
type Directory struct {
	client *helix.Client
	logger *otelinfra.Logger

	mu    sync.RWMutex
	users map[string]helix.User
}

// NewDirectory 新しいDirectoryを作成
func NewDirectory(cfg HelixConfig, logger *otelinfra.Logger) (*Directory, error) {
	opts := &helix.Options{
		ClientID:        cfg.ClientID,
		UserAccessToken: cfg.AccessToken,
	}
	if cfg.APIBaseURL != "" {
		opts.APIBaseURL = cfg.APIBaseURL
	}
	client, err := helix.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}
	return &Directory{
		client: client,
		logger: logger,
		users:  make(map[string]helix.User),
	}, nil
}

// LookupUser ログイン名から視聴者を引く。ロールは分からないため一般ユーザーとして返す
func (d *Directory) LookupUser(ctx context.Context, platform user.Platform, username string) (*user.User, bool) {
	if platform != user.PlatformTwitch {
		return nil, false
	}
	hu, err := d.lookup(username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			d.logger.Warn(ctx, "Failed to look up Twitch user", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
		}
		return nil, false
	}
	name := hu.DisplayName
	if name == "" {
		name = hu.Login
	}
	return &user.User{
		ID:       hu.ID,
		Username: name,
		Platform: user.PlatformTwitch,
		Role:     user.RoleUser,
	}, true
}

// Whisper fromからtoへウィスパーを送る
func (d *Directory) Whisper(_ context.Context, from, to, text string) error {
	sender, err := d.lookup(from)
	if err != nil {
		return fmt.Errorf("helix: resolve sender %s: %w", from, err)
	}
	recipient, err := d.lookup(to)
	if err != nil {
		return fmt.Errorf("helix: resolve recipient %s: %w", to, err)
	}

	resp, err := d.client.SendUserWhisper(&helix.SendUserWhisperParams{
		FromUserID: sender.ID,
		ToUserID:   recipient.ID,
		Message:    text,
	})
	if err != nil {
		return fmt.Errorf("helix: SendUserWhisper: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix: SendUserWhisper failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	return nil
}

// lookup ログイン名でユーザーを取得する。見つかったものはキャッシュする
func (d *Directory) lookup(login string) (helix.User, error) {
	login = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(login), "@"))
	if login == "" {
		return helix.User{}, ErrUserNotFound
	}

	d.mu.RLock()
	hu, ok := d.users[login]
	d.mu.RUnlock()
	if ok {
		return hu, nil
	}

	resp, err := d.client.GetUsers(&helix.UsersParams{
		Logins: []string{login},
	})
	if err != nil {
		return helix.User{}, fmt.Errorf("helix: GetUsers: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return helix.User{}, fmt.Errorf("helix: GetUsers failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return helix.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, login)
	}

	hu = resp.Data.Users[0]
	d.mu.Lock()
	d.users[login] = hu
	d.mu.Unlock()
	return hu, nil
}
