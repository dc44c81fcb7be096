package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"command-server/internal/domain/currency"
)

// mysqlErrDuplicateEntry 一意制約違反のエラー番号
const mysqlErrDuplicateEntry = 1062

// CurrencyRepository MySQL実装のCurrencyRepository
type CurrencyRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewCurrencyRepository 新しいCurrencyRepositoryを作成
func NewCurrencyRepository(db *DB) *CurrencyRepository {
	return &CurrencyRepository{
		db:     db,
		tracer: otel.Tracer("currency-repository"),
	}
}

// FindByAccountAndCurrency アカウントIDと通貨IDで通貨を取得
func (r *CurrencyRepository) FindByAccountAndCurrency(ctx context.Context, accountID string, currencyID currency.CurrencyID) (*currency.Currency, error) {
	ctx, span := r.tracer.Start(ctx, "CurrencyRepository.FindByAccountAndCurrency")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.account_id", accountID),
		attribute.String("db.currency_id", currencyID.String()),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "currency_balances"),
	)

	query := `
		SELECT account_id, currency_id, balance, version
		FROM currency_balances
		WHERE account_id = ? AND currency_id = ?
	`

	var dbAccountID, dbCurrencyID string
	var balance int64
	var version int

	err := r.db.conn(ctx).QueryRowContext(ctx, query, accountID, currencyID.String()).Scan(
		&dbAccountID,
		&dbCurrencyID,
		&balance,
		&version,
	)

	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "currency not found")
		return nil, currency.ErrCurrencyNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find currency: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("db.balance", balance),
		attribute.Int("db.version", version),
	)
	span.SetStatus(otelcodes.Ok, "currency found")

	return reconstructCurrency(dbAccountID, dbCurrencyID, balance, version)
}

// FindByAccount アカウントの全通貨を取得
func (r *CurrencyRepository) FindByAccount(ctx context.Context, accountID string) ([]*currency.Currency, error) {
	ctx, span := r.tracer.Start(ctx, "CurrencyRepository.FindByAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.account_id", accountID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "currency_balances"),
	)

	query := `
		SELECT account_id, currency_id, balance, version
		FROM currency_balances
		WHERE account_id = ?
		ORDER BY currency_id
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []*currency.Currency
	for rows.Next() {
		var dbAccountID, dbCurrencyID string
		var balance int64
		var version int
		if err := rows.Scan(&dbAccountID, &dbCurrencyID, &balance, &version); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		c, err := reconstructCurrency(dbAccountID, dbCurrencyID, balance, version)
		if err != nil {
			return nil, err
		}
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate currencies: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", len(currencies)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d currencies", len(currencies)))
	return currencies, nil
}

// Save 通貨を保存（更新、楽観的ロック対応）
// 読み込み時点のバージョンと一致する場合のみ更新し、バージョンを1つ進める
func (r *CurrencyRepository) Save(ctx context.Context, c *currency.Currency) error {
	ctx, span := r.tracer.Start(ctx, "CurrencyRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.account_id", c.AccountID()),
		attribute.String("db.currency_id", c.CurrencyID().String()),
		attribute.Int64("db.balance", c.Balance()),
		attribute.Int("db.version", c.Version()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "currency_balances"),
	)

	query := `
		UPDATE currency_balances
		SET balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND currency_id = ? AND version = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		c.Balance(),
		c.AccountID(),
		c.CurrencyID().String(),
		c.Version(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to save currency: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.RecordError(currency.ErrOptimisticLock)
		span.SetStatus(otelcodes.Error, currency.ErrOptimisticLock.Error())
		return currency.ErrOptimisticLock
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "currency saved")
	return nil
}

// Create 新しい通貨を作成
// 同時に作成された場合は楽観的ロックエラーとして扱い、呼び出し側で再試行させる
func (r *CurrencyRepository) Create(ctx context.Context, c *currency.Currency) error {
	ctx, span := r.tracer.Start(ctx, "CurrencyRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.account_id", c.AccountID()),
		attribute.String("db.currency_id", c.CurrencyID().String()),
		attribute.Int64("db.balance", c.Balance()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "currency_balances"),
	)

	query := `
		INSERT INTO currency_balances (account_id, currency_id, balance, version)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		c.AccountID(),
		c.CurrencyID().String(),
		c.Balance(),
		c.Version(),
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			span.RecordError(currency.ErrOptimisticLock)
			span.SetStatus(otelcodes.Error, "currency already exists")
			return currency.ErrOptimisticLock
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create currency: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "currency created")
	return nil
}

func reconstructCurrency(accountID, currencyID string, balance int64, version int) (*currency.Currency, error) {
	cid, err := currency.NewCurrencyID(currencyID)
	if err != nil {
		return nil, fmt.Errorf("invalid currency id: %w", err)
	}
	c, err := currency.NewCurrency(accountID, cid, balance, version)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct currency entity: %w", err)
	}
	return c, nil
}
