// Package presence 最近チャットに参加した視聴者の追跡
package presence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"command-server/internal/domain/port"
	"command-server/internal/domain/user"
)

type key struct {
	platform user.Platform
	username string
}

type entry struct {
	user     user.User
	lastSeen time.Time
}

// Tracker 視聴者の最終発言時刻を保持する
// TTLを過ぎた視聴者はアクティブとみなさない
type Tracker struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[key]*entry
}

// NewTracker 新しいTrackerを作成
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[key]*entry),
	}
}

func keyOf(platform user.Platform, username string) key {
	return key{platform: platform, username: strings.ToLower(strings.TrimPrefix(username, "@"))}
}

// Touch 発言を記録する
func (t *Tracker) Touch(u *user.User) {
	if u == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[keyOf(u.Platform, u.Username)] = &entry{user: *u, lastSeen: t.now()}
}

// Lookup ユーザー名からアクティブな視聴者を探す（先頭の@は無視）
func (t *Tracker) Lookup(platform user.Platform, username string) (*user.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[keyOf(platform, username)]
	if !ok || !t.active(e) {
		return nil, false
	}
	u := e.user
	return &u, true
}

// Active アクティブな視聴者をユーザー名順で返す
func (t *Tracker) Active(platform user.Platform) []*user.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*user.User
	for k, e := range t.entries {
		if k.platform != platform || !t.active(e) {
			continue
		}
		u := e.user
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Random excludeを除くアクティブな視聴者を無作為に1人選ぶ
func (t *Tracker) Random(platform user.Platform, exclude *user.User, rng port.RNG) (*user.User, bool) {
	var candidates []*user.User
	for _, u := range t.Active(platform) {
		if !u.Is(exclude) {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[rng.IntN(len(candidates))], true
}

// Sweep 期限切れのエントリを削除し、削除数を返す
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, e := range t.entries {
		if !t.active(e) {
			delete(t.entries, k)
			n++
		}
	}
	return n
}

func (t *Tracker) active(e *entry) bool {
	return t.ttl <= 0 || t.now().Sub(e.lastSeen) <= t.ttl
}
