package user

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidUser ユーザー情報が無効
	ErrInvalidUser = errors.New("invalid user")
)

// Platform 配信プラットフォーム
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
	PlatformTrovo   Platform = "trovo"
	PlatformAll     Platform = "all" // 全プラットフォーム宛て（ウィスパー送信時など）
	PlatformAPI     Platform = "api" // 管理APIから注入されたメッセージ
)

// NewPlatform 新しいPlatformを作成
func NewPlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(s)); p {
	case PlatformTwitch, PlatformYouTube, PlatformTrovo, PlatformAll, PlatformAPI:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown platform %s", ErrInvalidUser, s)
	}
}

// String 文字列表現を返す
func (p Platform) String() string {
	return string(p)
}

// User チャットユーザー
type User struct {
	ID       string
	Username string
	Platform Platform
	Role     Role
}

// New 新しいUserを作成
func New(id, username string, platform Platform, role Role) (*User, error) {
	if id == "" || username == "" {
		return nil, ErrInvalidUser
	}
	return &User{
		ID:       id,
		Username: username,
		Platform: platform,
		Role:     role,
	}, nil
}

// Is 同一ユーザーかどうかを返す
func (u *User) Is(other *User) bool {
	if u == nil || other == nil {
		return false
	}
	return u.ID == other.ID && u.Platform == other.Platform
}

// Mention チャット上でのメンション表記を返す
func (u *User) Mention() string {
	return "@" + u.Username
}

// AccountID 通貨台帳上のアカウントIDを返す（プラットフォームごとに一意）
func (u *User) AccountID() string {
	return string(u.Platform) + "." + u.ID
}
