package memory

import (
	"context"
	"sync"
	"time"

	"command-server/internal/domain/command"
)

var _ command.CooldownStore = (*CooldownStore)(nil)

// CooldownStore メモリ上のクールダウンストア
type CooldownStore struct {
	mu      sync.RWMutex
	expires map[string]time.Time
}

// NewCooldownStore 新しいCooldownStoreを作成
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{expires: make(map[string]time.Time)}
}

// Expiry クールダウン期限を返す
func (s *CooldownStore) Expiry(_ context.Context, key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expires[key], nil
}

// SetExpiry クールダウン期限を保存
func (s *CooldownStore) SetExpiry(_ context.Context, key string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[key] = expiresAt
	return nil
}

// Clear クールダウンを解除
func (s *CooldownStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, key)
	return nil
}

// Sweep 期限切れのエントリを削除し、削除数を返す
func (s *CooldownStore) Sweep(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, exp := range s.expires {
		if !exp.After(now) {
			delete(s.expires, k)
			n++
		}
	}
	return n, nil
}
