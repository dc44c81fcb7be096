package service

import (
	"context"
	"errors"

	"command-server/internal/domain/currency"
)

// CurrencyService 通貨残高に関するドメインサービス
type CurrencyService struct {
	currencyRepo currency.CurrencyRepository
}

// NewCurrencyService 新しいCurrencyServiceを作成
func NewCurrencyService(currencyRepo currency.CurrencyRepository) *CurrencyService {
	return &CurrencyService{
		currencyRepo: currencyRepo,
	}
}

// Balance アカウントの指定通貨の残高を取得（口座が未作成なら0）
func (s *CurrencyService) Balance(ctx context.Context, accountID string, currencyID currency.CurrencyID) (int64, error) {
	c, err := s.currencyRepo.FindByAccountAndCurrency(ctx, accountID, currencyID)
	if errors.Is(err, currency.ErrCurrencyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Balance(), nil
}

// Balances アカウントの全通貨の残高を通貨IDごとに取得
func (s *CurrencyService) Balances(ctx context.Context, accountID string) (map[currency.CurrencyID]int64, error) {
	list, err := s.currencyRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balances := make(map[currency.CurrencyID]int64, len(list))
	for _, c := range list {
		balances[c.CurrencyID()] = c.Balance()
	}
	return balances, nil
}

// HasSufficientBalance 指定された金額の残高があるかチェック
func (s *CurrencyService) HasSufficientBalance(ctx context.Context, accountID string, currencyID currency.CurrencyID, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	balance, err := s.Balance(ctx, accountID, currencyID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}
