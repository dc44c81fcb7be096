package history

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/domain/currency"
	"command-server/internal/domain/transaction"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// HistoryApplicationService 履歴アプリケーションサービス
type HistoryApplicationService struct {
	transactionRepo transaction.TransactionRepository
	logger          *otelinfra.Logger
	tracer          trace.Tracer
}

// NewHistoryApplicationService 新しいHistoryApplicationServiceを作成
func NewHistoryApplicationService(
	transactionRepo transaction.TransactionRepository,
	logger *otelinfra.Logger,
) *HistoryApplicationService {
	return &HistoryApplicationService{
		transactionRepo: transactionRepo,
		logger:          logger,
		tracer:          otel.Tracer("history-service"),
	}
}

// GetTransactionHistory トランザクション履歴を取得（新しい順）
func (s *HistoryApplicationService) GetTransactionHistory(ctx context.Context, req *GetTransactionHistoryRequest) (*GetTransactionHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetTransactionHistory")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	span.SetAttributes(
		attribute.String("account_id", req.AccountID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	// フィルタ条件は先に検証する
	var currencyID currency.CurrencyID
	if req.CurrencyID != "" {
		id, err := currency.NewCurrencyID(req.CurrencyID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		currencyID = id
	}
	var transactionType transaction.TransactionType
	if req.TransactionType != "" {
		tt, err := transaction.NewTransactionType(req.TransactionType)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		transactionType = tt
	}

	transactions, err := s.transactionRepo.FindByAccountID(ctx, req.AccountID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get transaction history", err, map[string]interface{}{
			"account_id": req.AccountID,
		})
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	filtered := make([]*transaction.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if currencyID != "" && txn.CurrencyID() != currencyID {
			continue
		}
		if transactionType != "" && txn.TransactionType() != transactionType {
			continue
		}
		filtered = append(filtered, txn)
	}

	return &GetTransactionHistoryResponse{
		Transactions: filtered,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// GetByReference 確保・ゲームセッションに紐づく履歴を取得（古い順）
func (s *HistoryApplicationService) GetByReference(ctx context.Context, req *GetByReferenceRequest) ([]*transaction.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetByReference")
	defer span.End()

	span.SetAttributes(attribute.String("reference", req.Reference))

	if req.Reference == "" {
		err := transaction.ErrInvalidTransaction
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	transactions, err := s.transactionRepo.FindByReference(ctx, req.Reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get transactions by reference", err, map[string]interface{}{
			"reference": req.Reference,
		})
		return nil, fmt.Errorf("failed to get transactions by reference: %w", err)
	}
	return transactions, nil
}
