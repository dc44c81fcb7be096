package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics メトリクス定義
type Metrics struct {
	// 台帳操作数
	TransactionCount metric.Int64Counter

	// 通貨残高
	CurrencyBalance metric.Int64Gauge

	// コマンド実行数（結果別）
	CommandCount metric.Int64Counter

	// アクション実行数（種類・結果別）
	ActionCount metric.Int64Counter

	// アクション実行時間
	ActionDuration metric.Float64Histogram

	// 実行条件で拒否された回数
	RequirementRejectCount metric.Int64Counter

	// ゲームの進行（開始・決着・タイムアウト）
	GameCount metric.Int64Counter

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー数
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	return newMetricsFromMeter(otel.Meter(meterName))
}

// NewNopMetrics 何も記録しないMetricsを作成（テスト用）
func NewNopMetrics() *Metrics {
	m, err := newMetricsFromMeter(noop.NewMeterProvider().Meter("noop"))
	if err != nil {
		panic(err)
	}
	return m
}

func newMetricsFromMeter(meter metric.Meter) (*Metrics, error) {
	transactionCount, err := meter.Int64Counter(
		"transactions_total",
		metric.WithDescription("Total number of ledger transactions"),
	)
	if err != nil {
		return nil, err
	}

	currencyBalance, err := meter.Int64Gauge(
		"currency_balance",
		metric.WithDescription("Currency balance"),
	)
	if err != nil {
		return nil, err
	}

	commandCount, err := meter.Int64Counter(
		"commands_total",
		metric.WithDescription("Total number of command invocations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	actionCount, err := meter.Int64Counter(
		"actions_total",
		metric.WithDescription("Total number of executed actions by kind and result"),
	)
	if err != nil {
		return nil, err
	}

	actionDuration, err := meter.Float64Histogram(
		"action_duration_seconds",
		metric.WithDescription("Action execution time in seconds"),
	)
	if err != nil {
		return nil, err
	}

	requirementRejectCount, err := meter.Int64Counter(
		"requirement_rejections_total",
		metric.WithDescription("Total number of invocations rejected by a requirement"),
	)
	if err != nil {
		return nil, err
	}

	gameCount, err := meter.Int64Counter(
		"games_total",
		metric.WithDescription("Total number of game events by type and outcome"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of requests"),
	)
	if err != nil {
		return nil, err
	}

	responseTime, err := meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		TransactionCount:       transactionCount,
		CurrencyBalance:        currencyBalance,
		CommandCount:           commandCount,
		ActionCount:            actionCount,
		ActionDuration:         actionDuration,
		RequirementRejectCount: requirementRejectCount,
		GameCount:              gameCount,
		RequestCount:           requestCount,
		ResponseTime:           responseTime,
		ErrorCount:             errorCount,
	}, nil
}

// RecordTransaction 台帳操作を記録
func (m *Metrics) RecordTransaction(ctx context.Context, transactionType, currencyID string) {
	m.TransactionCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transaction_type", transactionType),
			attribute.String("currency_id", currencyID),
		),
	)
}

// RecordCurrencyBalance 通貨残高を記録
func (m *Metrics) RecordCurrencyBalance(ctx context.Context, accountID, currencyID string, balance int64) {
	m.CurrencyBalance.Record(ctx, balance,
		metric.WithAttributes(
			attribute.String("account_id", accountID),
			attribute.String("currency_id", currencyID),
		),
	)
}

// RecordCommand コマンドの実行結果を記録
func (m *Metrics) RecordCommand(ctx context.Context, commandID, outcome string) {
	m.CommandCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command_id", commandID),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordAction アクションの実行結果と時間を記録
func (m *Metrics) RecordAction(ctx context.Context, kind string, ok bool, seconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	)
	m.ActionCount.Add(ctx, 1, attrs)
	m.ActionDuration.Record(ctx, seconds, attrs)
}

// RecordRequirementReject 実行条件による拒否を記録
func (m *Metrics) RecordRequirementReject(ctx context.Context, kind string) {
	m.RequirementRejectCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("requirement", kind),
		),
	)
}

// RecordGame ゲームのイベントを記録
func (m *Metrics) RecordGame(ctx context.Context, gameType, outcome string) {
	m.GameCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("game_type", gameType),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
