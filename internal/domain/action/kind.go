package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind アクション種別
// 同じ種別のアクションはプロセス全体で直列に実行される
type Kind int

const (
	KindUnknown           Kind = 0
	KindChat              Kind = 1
	KindCurrency          Kind = 2
	KindOverlay           Kind = 3
	KindWebhook           Kind = 4
	KindWait              Kind = 5
	KindSpecialIdentifier Kind = 6

	// 予約済み（旧バージョンの設定データ互換のため読み込みのみ可能）
	KindInteractive Kind = 90
	KindSongRequest Kind = 91
	KindSpotify     Kind = 92
)

var kindNames = map[Kind]string{
	KindChat:              "chat",
	KindCurrency:          "currency",
	KindOverlay:           "overlay",
	KindWebhook:           "webhook",
	KindWait:              "wait",
	KindSpecialIdentifier: "special_identifier",
	KindInteractive:       "interactive",
	KindSongRequest:       "song_request",
	KindSpotify:           "spotify",
}

// ParseKind 名前または数値コードからKindを作成
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		k := Kind(n)
		if _, ok := kindNames[k]; ok {
			return k, nil
		}
		return KindUnknown, fmt.Errorf("invalid action kind code: %d", n)
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("invalid action kind: %s", s)
}

// String 文字列表現を返す
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Reserved 予約済み種別かどうかを返す
func (k Kind) Reserved() bool {
	return k >= KindInteractive
}

// Valid 既知の種別かどうかを返す
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Kinds 実行可能な（予約済みでない）種別を返す
func Kinds() []Kind {
	return []Kind{
		KindChat,
		KindCurrency,
		KindOverlay,
		KindWebhook,
		KindWait,
		KindSpecialIdentifier,
	}
}
