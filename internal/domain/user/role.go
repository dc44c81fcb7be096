package user

import (
	"fmt"
	"strings"
)

// Role 権限レベル（大きいほど強い）
type Role int

const (
	RoleBanned Role = iota
	RoleUser
	RoleFollower
	RoleRegular
	RoleSubscriber
	RoleVIP
	RoleModerator
	RoleChannelEditor
	RoleStreamer
)

var roleNames = map[Role]string{
	RoleBanned:        "banned",
	RoleUser:          "user",
	RoleFollower:      "follower",
	RoleRegular:       "regular",
	RoleSubscriber:    "subscriber",
	RoleVIP:           "vip",
	RoleModerator:     "moderator",
	RoleChannelEditor: "editor",
	RoleStreamer:      "streamer",
}

// NewRole 文字列からRoleを作成
func NewRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "mod":
		return RoleModerator, nil
	case "broadcaster", "owner":
		return RoleStreamer, nil
	case "sub":
		return RoleSubscriber, nil
	}
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return RoleUser, fmt.Errorf("%w: unknown role %s", ErrInvalidUser, s)
}

// String 文字列表現を返す
func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// AtLeast 指定した権限以上かどうかを返す
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Roles 全ロールを弱い順に返す
func Roles() []Role {
	return []Role{
		RoleBanned,
		RoleUser,
		RoleFollower,
		RoleRegular,
		RoleSubscriber,
		RoleVIP,
		RoleModerator,
		RoleChannelEditor,
		RoleStreamer,
	}
}

// RoleFromFlags プラットフォームのフラグから権限を決定
func RoleFromFlags(broadcaster, moderator, vip, subscriber bool) Role {
	switch {
	case broadcaster:
		return RoleStreamer
	case moderator:
		return RoleModerator
	case vip:
		return RoleVIP
	case subscriber:
		return RoleSubscriber
	default:
		return RoleUser
	}
}
