// Package random ゲーム・プレースホルダ用の乱数源
package random

import (
	"math/rand/v2"
	"sync"

	"command-server/internal/domain/port"
)

var _ port.RNG = (*Source)(nil)

// Source port.RNGの実装
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New 実行ごとに異なる系列を返すSourceを作成
func New() *Source {
	return &Source{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded 固定シードのSourceを作成
func NewSeeded(seed uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NextUniform [0,1) の一様乱数を返す
func (s *Source) NextUniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// IntN [0,n) の整数乱数を返す。n<=0なら0
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
