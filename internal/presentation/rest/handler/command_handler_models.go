package handler

import "time"

// CommandItem コマンド定義の概要
// @Description コマンド定義の概要
type CommandItem struct {
	ID       string   `json:"id" example:"hug"`
	Name     string   `json:"name" example:"Hug"`
	Triggers []string `json:"triggers" example:"hug"`
	Enabled  bool     `json:"enabled" example:"true"`
	Game     string   `json:"game,omitempty" example:"duel"`
	Actions  int      `json:"actions" example:"2"`
	MinRole  string   `json:"min_role,omitempty" example:"moderator"`
	Cooldown string   `json:"cooldown,omitempty" example:"30s"`
	Cost     string   `json:"cost,omitempty" example:"10 points"`
}

// CommandListResponse コマンド一覧レスポンス
// @Description コマンド一覧レスポンス
type CommandListResponse struct {
	Commands []CommandItem `json:"commands"`
}

// Invoker 管理APIから実行する際の発言者
// @Description 管理APIから実行する際の発言者
type Invoker struct {
	UserID   string `json:"user_id" example:"1001"`
	Username string `json:"username" example:"alice"`
	Platform string `json:"platform" example:"twitch"`
	Role     string `json:"role" example:"user" enums:"user,follower,regular,subscriber,vip,moderator,editor,streamer"`
}

// RunCommandRequest コマンド実行リクエスト
// @Description コマンド実行リクエスト
type RunCommandRequest struct {
	Invoker
	Channel string   `json:"channel" example:"mychannel"`
	Args    []string `json:"args" example:"bob"`
}

// InjectMessageRequest チャットメッセージ注入リクエスト
// @Description チャットメッセージ注入リクエスト
type InjectMessageRequest struct {
	Invoker
	Channel string `json:"channel" example:"mychannel"`
	Text    string `json:"text" example:"!hug bob"`
}

// StatusResponse 処理結果レスポンス
// @Description 処理結果レスポンス
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// GameSessionItem 進行中のゲーム
// @Description 進行中のゲーム
type GameSessionItem struct {
	CommandID string    `json:"command_id" example:"duel"`
	SessionID string    `json:"session_id" example:"duel_7c9e6679"`
	Initiator string    `json:"initiator" example:"alice"`
	Target    string    `json:"target" example:"bob"`
	Bet       string    `json:"bet" example:"30"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
	Deadline  time.Time `json:"deadline" example:"2024-01-01T12:01:00Z"`
}

// GameSessionListResponse 進行中のゲーム一覧レスポンス
// @Description 進行中のゲーム一覧レスポンス
type GameSessionListResponse struct {
	Sessions []GameSessionItem `json:"sessions"`
}
