package command

import (
	"strings"
	"sync"
	"time"

	"command-server/internal/domain/user"
)

// Parameters 1回のコマンド呼び出しのコンテキスト
// 特殊識別子と計算済みプレースホルダ値を呼び出し単位で保持する
type Parameters struct {
	User        *user.User
	Target      *user.User
	Platform    user.Platform
	Channel     string
	Args        []string
	TriggeredAt time.Time

	mu          sync.Mutex
	identifiers map[string]string
	memo        map[string]string
}

// NewParameters 新しいParametersを作成
func NewParameters(u *user.User, channel string, args []string, now time.Time) *Parameters {
	p := &Parameters{
		User:        u,
		Channel:     channel,
		Args:        args,
		TriggeredAt: now,
		identifiers: make(map[string]string),
		memo:        make(map[string]string),
	}
	if u != nil {
		p.Platform = u.Platform
	}
	return p
}

// SetIdentifier 特殊識別子を設定（名前は小文字で保持）
func (p *Parameters) SetIdentifier(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identifiers == nil {
		p.identifiers = make(map[string]string)
	}
	p.identifiers[strings.ToLower(name)] = value
}

// Identifier 特殊識別子を取得
func (p *Parameters) Identifier(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.identifiers[strings.ToLower(name)]
	return v, ok
}

// Identifiers 特殊識別子のコピーを返す
func (p *Parameters) Identifiers() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.identifiers))
	for k, v := range p.identifiers {
		out[k] = v
	}
	return out
}

// Memoize keyの値が未計算ならcomputeで計算して保持し、以後同じ値を返す
// compute中はロックを保持しないため、同時に計算された場合は先に保存された値を採用する
func (p *Parameters) Memoize(key string, compute func() (string, error)) (string, error) {
	p.mu.Lock()
	if v, ok := p.memo[key]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	v, err := compute()
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.memo == nil {
		p.memo = make(map[string]string)
	}
	if existing, ok := p.memo[key]; ok {
		return existing, nil
	}
	p.memo[key] = v
	return v, nil
}

// Arg n番目（1始まり）の引数を返す
func (p *Parameters) Arg(n int) (string, bool) {
	if n < 1 || n > len(p.Args) {
		return "", false
	}
	return p.Args[n-1], true
}

// WithTarget 対象ユーザーを設定して自身を返す
func (p *Parameters) WithTarget(target *user.User) *Parameters {
	p.Target = target
	return p
}
