package currency

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"command-server/internal/domain/currency"
	"command-server/internal/domain/port"
	"command-server/internal/domain/transaction"
)

var _ port.Ledger = (*CurrencyApplicationService)(nil)

// Balance 残高を取得（口座未作成なら0）
func (s *CurrencyApplicationService) Balance(ctx context.Context, accountID, currencyID string) (int64, error) {
	id, err := currency.NewCurrencyID(currencyID)
	if err != nil {
		return 0, err
	}
	return s.currencyService.Balance(ctx, accountID, id)
}

// HasAmount 指定額以上の残高があるかを返す
func (s *CurrencyApplicationService) HasAmount(ctx context.Context, accountID, currencyID string, amount int64) (bool, error) {
	id, err := currency.NewCurrencyID(currencyID)
	if err != nil {
		return false, err
	}
	return s.currencyService.HasSufficientBalance(ctx, accountID, id, amount)
}

// AddAmount 残高を加算する
// 関連キーが確保のものなら返金、それ以外は付与として記録する
func (s *CurrencyApplicationService) AddAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error {
	tt := transaction.TransactionTypeGrant
	if strings.HasPrefix(reference, port.HoldReferencePrefix) {
		tt = transaction.TransactionTypeRefund
	}
	return s.adjust(ctx, "CurrencyApplicationService.AddAmount", accountID, currencyID, amount, reference, tt)
}

// SubtractAmount 残高を減算する
// 関連キーが確保のものなら確保、それ以外は消費として記録する
func (s *CurrencyApplicationService) SubtractAmount(ctx context.Context, accountID, currencyID string, amount int64, reference string) error {
	tt := transaction.TransactionTypeConsume
	if strings.HasPrefix(reference, port.HoldReferencePrefix) {
		tt = transaction.TransactionTypeHold
	}
	return s.adjust(ctx, "CurrencyApplicationService.SubtractAmount", accountID, currencyID, amount, reference, tt)
}

func (s *CurrencyApplicationService) adjust(ctx context.Context, name, accountID, currencyID string, amount int64, reference string, tt transaction.TransactionType) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("currency_id", currencyID),
		attribute.Int64("amount", amount),
		attribute.String("reference", reference),
	)

	id, err := validateAmount(currencyID, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	_, err = s.post(ctx, reference, "engine", nil, posting{
		accountID:       accountID,
		currencyID:      id,
		amount:          amount,
		transactionType: tt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	return nil
}

// Settle 賭けを精算する
// 敗者からStakeを引き、勝者にStake+Escrowを加える。すべて同一トランザクションで行う
func (s *CurrencyApplicationService) Settle(ctx context.Context, st port.Settlement) error {
	ctx, span := s.tracer.Start(ctx, "CurrencyApplicationService.Settle")
	defer span.End()

	span.SetAttributes(
		attribute.String("winner_id", st.WinnerID),
		attribute.String("loser_id", st.LoserID),
		attribute.String("currency_id", st.CurrencyID),
		attribute.Int64("stake", st.Stake),
		attribute.Int64("escrow", st.Escrow),
		attribute.String("reference", st.Reference),
	)

	if st.Stake < 0 || st.Escrow < 0 || st.Stake+st.Escrow <= 0 {
		span.RecordError(currency.ErrInvalidAmount)
		span.SetStatus(otelcodes.Error, currency.ErrInvalidAmount.Error())
		return currency.ErrInvalidAmount
	}
	id, err := currency.NewCurrencyID(st.CurrencyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	var postings []posting
	if st.Stake > 0 {
		postings = append(postings, posting{
			accountID:       st.LoserID,
			currencyID:      id,
			amount:          st.Stake,
			transactionType: transaction.TransactionTypeLoss,
		})
	}
	postings = append(postings, posting{
		accountID:       st.WinnerID,
		currencyID:      id,
		amount:          st.Stake + st.Escrow,
		transactionType: transaction.TransactionTypePayout,
	})

	if _, err := s.post(ctx, st.Reference, "game", nil, postings...); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to settle wager", err, map[string]interface{}{
			"winner_id": st.WinnerID,
			"loser_id":  st.LoserID,
			"reference": st.Reference,
		})
		s.metrics.RecordError(ctx, "settle_failed")
		return err
	}

	s.logger.Info(ctx, "Wager settled", map[string]interface{}{
		"winner_id": st.WinnerID,
		"loser_id":  st.LoserID,
		"stake":     st.Stake,
		"escrow":    st.Escrow,
		"reference": st.Reference,
	})
	return nil
}
