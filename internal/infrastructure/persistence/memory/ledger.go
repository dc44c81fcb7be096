// Package memory プロセス内メモリに状態を保持するストア実装
package memory

import (
	"context"
	"sync"

	"command-server/internal/domain/currency"
	"command-server/internal/domain/port"
)

var _ port.Ledger = (*Ledger)(nil)

type balanceKey struct {
	accountID  string
	currencyID string
}

// Ledger メモリ上の通貨台帳
// 全操作を1つのロックで直列化するため、Settleも含めてアトミックに反映される
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
}

// NewLedger 新しいLedgerを作成
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]int64)}
}

// Balance 残高を返す
func (l *Ledger) Balance(_ context.Context, accountID, currencyID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{accountID, currencyID}], nil
}

// HasAmount 指定額以上の残高があるかを返す
func (l *Ledger) HasAmount(ctx context.Context, accountID, currencyID string, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	b, err := l.Balance(ctx, accountID, currencyID)
	return b >= amount, err
}

// AddAmount 残高を加算
func (l *Ledger) AddAmount(_ context.Context, accountID, currencyID string, amount int64, _ string) error {
	if amount <= 0 {
		return currency.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{accountID, currencyID}
	if l.balances[k]+amount > currency.MaxAmount {
		return currency.ErrBalanceOutOfRange
	}
	l.balances[k] += amount
	return nil
}

// SubtractAmount 残高を減算
func (l *Ledger) SubtractAmount(_ context.Context, accountID, currencyID string, amount int64, _ string) error {
	if amount <= 0 {
		return currency.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{accountID, currencyID}
	if l.balances[k] < amount {
		return currency.ErrInsufficientBalance
	}
	l.balances[k] -= amount
	return nil
}

// Settle 賭けを精算
func (l *Ledger) Settle(_ context.Context, s port.Settlement) error {
	if s.Stake < 0 || s.Escrow < 0 || s.Stake+s.Escrow <= 0 {
		return currency.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	loser := balanceKey{s.LoserID, s.CurrencyID}
	winner := balanceKey{s.WinnerID, s.CurrencyID}
	if l.balances[loser] < s.Stake {
		return currency.ErrInsufficientBalance
	}
	winnerBalance := l.balances[winner]
	if winner == loser {
		winnerBalance -= s.Stake
	}
	if s.Stake+s.Escrow > currency.MaxAmount-winnerBalance {
		return currency.ErrBalanceOutOfRange
	}
	l.balances[loser] -= s.Stake
	l.balances[winner] += s.Stake + s.Escrow
	return nil
}

// SetBalance 残高を直接設定（初期データ投入用）
func (l *Ledger) SetBalance(accountID, currencyID string, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{accountID, currencyID}] = balance
}
