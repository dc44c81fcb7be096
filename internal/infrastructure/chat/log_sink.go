// Package chat チャット送信先の実装
package chat

import (
	"context"
	"sync"

	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

const recentLimit = 100

var _ port.ChatSink = (*LogSink)(nil)

// Sent 送信済みメッセージ
type Sent struct {
	Platform   user.Platform `json:"platform,omitempty"`
	To         string        `json:"to,omitempty"`
	Text       string        `json:"text"`
	AsStreamer bool          `json:"as_streamer"`
}

// LogSink チャット接続がない環境でメッセージをログに出す送信先
// 直近のメッセージを保持する
type LogSink struct {
	logger *otelinfra.Logger

	mu     sync.Mutex
	recent []Sent
}

// NewLogSink 新しいLogSinkを作成
func NewLogSink(logger *otelinfra.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// SendMessage メッセージをログに出す
func (s *LogSink) SendMessage(ctx context.Context, text string, asStreamer bool) error {
	s.record(Sent{Text: text, AsStreamer: asStreamer})
	s.logger.Info(ctx, "Chat message", map[string]interface{}{
		"text":        text,
		"as_streamer": asStreamer,
	})
	return nil
}

// Whisper ウィスパーをログに出す
func (s *LogSink) Whisper(ctx context.Context, platform user.Platform, username, text string, asStreamer bool) error {
	s.record(Sent{Platform: platform, To: username, Text: text, AsStreamer: asStreamer})
	s.logger.Info(ctx, "Chat whisper", map[string]interface{}{
		"platform":    platform.String(),
		"to":          username,
		"text":        text,
		"as_streamer": asStreamer,
	})
	return nil
}

// Recent 直近の送信メッセージを古い順に返す
func (s *LogSink) Recent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.recent...)
}

func (s *LogSink) record(m Sent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, m)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
}
