package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/domain/currency"
	"command-server/internal/domain/service"
	"command-server/internal/domain/transaction"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// CurrencyApplicationService 通貨アプリケーションサービス
type CurrencyApplicationService struct {
	currencyRepo    currency.CurrencyRepository
	transactionRepo transaction.TransactionRepository
	txManager       transaction.TransactionManager
	currencyService *service.CurrencyService
	logger          *otelinfra.Logger
	metrics         *otelinfra.Metrics
	tracer          trace.Tracer
	maxRetries      int
}

// NewCurrencyApplicationService 新しいCurrencyApplicationServiceを作成
func NewCurrencyApplicationService(
	currencyRepo currency.CurrencyRepository,
	transactionRepo transaction.TransactionRepository,
	txManager transaction.TransactionManager,
	currencyService *service.CurrencyService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *CurrencyApplicationService {
	return &CurrencyApplicationService{
		currencyRepo:    currencyRepo,
		transactionRepo: transactionRepo,
		txManager:       txManager,
		currencyService: currencyService,
		logger:          logger,
		metrics:         metrics,
		tracer:          otel.Tracer("currency-service"),
		maxRetries:      3,
	}
}

// posting 1アカウント分の残高変更
type posting struct {
	accountID       string
	currencyID      currency.CurrencyID
	amount          int64
	transactionType transaction.TransactionType
}

// postingResult 残高変更の結果
type postingResult struct {
	transactionID string
	balanceAfter  int64
}

// GetBalance 全通貨の残高を取得
func (s *CurrencyApplicationService) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CurrencyApplicationService.GetBalance")
	defer span.End()

	span.SetAttributes(attribute.String("account_id", req.AccountID))

	balances, err := s.currencyService.Balances(ctx, req.AccountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get balances", err, map[string]interface{}{
			"account_id": req.AccountID,
		})
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	resp := &GetBalanceResponse{
		AccountID: req.AccountID,
		Balances:  make(map[string]int64, len(balances)),
	}
	for id, balance := range balances {
		resp.Balances[id.String()] = balance
		s.metrics.RecordCurrencyBalance(ctx, req.AccountID, id.String(), balance)
	}
	return resp, nil
}

// Grant 通貨を付与
func (s *CurrencyApplicationService) Grant(ctx context.Context, req *GrantRequest) (*GrantResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CurrencyApplicationService.Grant")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", req.AccountID),
		attribute.String("currency_id", req.CurrencyID),
		attribute.Int64("amount", req.Amount),
	)

	currencyID, err := validateAmount(req.CurrencyID, req.Amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	results, err := s.post(ctx, req.Reference, req.Requester, req.Metadata, posting{
		accountID:       req.AccountID,
		currencyID:      currencyID,
		amount:          req.Amount,
		transactionType: transaction.TransactionTypeGrant,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to grant currency", err, map[string]interface{}{
			"account_id":  req.AccountID,
			"currency_id": req.CurrencyID,
			"amount":      req.Amount,
		})
		s.metrics.RecordError(ctx, "grant_failed")
		return nil, err
	}

	s.logger.Info(ctx, "Currency granted", map[string]interface{}{
		"account_id":     req.AccountID,
		"transaction_id": results[0].transactionID,
		"balance_after":  results[0].balanceAfter,
	})

	return &GrantResponse{
		TransactionID: results[0].transactionID,
		BalanceAfter:  results[0].balanceAfter,
	}, nil
}

// Consume 通貨を消費
func (s *CurrencyApplicationService) Consume(ctx context.Context, req *ConsumeRequest) (*ConsumeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CurrencyApplicationService.Consume")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", req.AccountID),
		attribute.String("currency_id", req.CurrencyID),
		attribute.Int64("amount", req.Amount),
	)

	currencyID, err := validateAmount(req.CurrencyID, req.Amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	results, err := s.post(ctx, req.Reference, req.Requester, req.Metadata, posting{
		accountID:       req.AccountID,
		currencyID:      currencyID,
		amount:          req.Amount,
		transactionType: transaction.TransactionTypeConsume,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		// 残高不足は利用者の操作によるものなのでエラーログにしない
		if !errors.Is(err, currency.ErrInsufficientBalance) {
			s.logger.Error(ctx, "Failed to consume currency", err, map[string]interface{}{
				"account_id":  req.AccountID,
				"currency_id": req.CurrencyID,
				"amount":      req.Amount,
			})
			s.metrics.RecordError(ctx, "consume_failed")
		}
		return nil, err
	}

	s.logger.Info(ctx, "Currency consumed", map[string]interface{}{
		"account_id":     req.AccountID,
		"transaction_id": results[0].transactionID,
		"balance_after":  results[0].balanceAfter,
	})

	return &ConsumeResponse{
		TransactionID: results[0].transactionID,
		BalanceAfter:  results[0].balanceAfter,
	}, nil
}

// post 残高変更をひとつのDBトランザクションで適用する
// 楽観的ロックに失敗した場合はトランザクションごとやり直す
func (s *CurrencyApplicationService) post(ctx context.Context, reference, requester string, metadata map[string]interface{}, postings ...posting) ([]postingResult, error) {
	var results []postingResult

	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数バックオフ
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 10 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		results = results[:0]
		err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			for _, p := range postings {
				r, err := s.apply(ctx, p, reference, requester, metadata)
				if err != nil {
					return err
				}
				results = append(results, r)
			}
			return nil
		})
		if !errors.Is(err, currency.ErrOptimisticLock) {
			break
		}
		s.logger.Warn(ctx, "Optimistic lock conflict, retrying", map[string]interface{}{
			"attempt":   attempt + 1,
			"reference": reference,
		})
	}
	if err != nil {
		return nil, err
	}

	for i, p := range postings {
		s.metrics.RecordTransaction(ctx, p.transactionType.String(), p.currencyID.String())
		s.metrics.RecordCurrencyBalance(ctx, p.accountID, p.currencyID.String(), results[i].balanceAfter)
	}
	return results, nil
}

// apply 1件の残高変更と履歴記録を行う（トランザクション内で呼ばれる）
func (s *CurrencyApplicationService) apply(ctx context.Context, p posting, reference, requester string, metadata map[string]interface{}) (postingResult, error) {
	c, err := s.currencyRepo.FindByAccountAndCurrency(ctx, p.accountID, p.currencyID)
	created := false
	if errors.Is(err, currency.ErrCurrencyNotFound) {
		// 口座が存在しない場合は残高0で作成
		c, err = currency.NewCurrency(p.accountID, p.currencyID, 0, 0)
		if err != nil {
			return postingResult{}, err
		}
		created = true
	} else if err != nil {
		return postingResult{}, fmt.Errorf("failed to find currency: %w", err)
	}

	balanceBefore := c.Balance()
	if p.transactionType.Credit() {
		err = c.Grant(p.amount)
	} else {
		err = c.Consume(p.amount)
	}
	if err != nil {
		return postingResult{}, err
	}

	if created {
		err = s.currencyRepo.Create(ctx, c)
	} else {
		err = s.currencyRepo.Save(ctx, c)
	}
	if err != nil {
		if errors.Is(err, currency.ErrOptimisticLock) {
			return postingResult{}, err
		}
		return postingResult{}, fmt.Errorf("failed to save currency: %w", err)
	}

	txn, err := transaction.NewTransaction(transaction.Params{
		TransactionID:   generateTransactionID(),
		AccountID:       p.accountID,
		TransactionType: p.transactionType,
		CurrencyID:      p.currencyID,
		Amount:          p.amount,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    c.Balance(),
		Reference:       reference,
		Requester:       requester,
		Metadata:        metadata,
	})
	if err != nil {
		return postingResult{}, err
	}
	if err := s.transactionRepo.Save(ctx, txn); err != nil {
		return postingResult{}, fmt.Errorf("failed to save transaction: %w", err)
	}

	return postingResult{
		transactionID: txn.TransactionID(),
		balanceAfter:  c.Balance(),
	}, nil
}

func validateAmount(currencyID string, amount int64) (currency.CurrencyID, error) {
	if amount <= 0 {
		return "", currency.ErrInvalidAmount
	}
	if amount > currency.MaxAmount {
		return "", currency.ErrAmountTooLarge
	}
	id, err := currency.NewCurrencyID(currencyID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// generateTransactionID トランザクションIDを生成
func generateTransactionID() string {
	return "txn_" + uuid.NewString()
}
