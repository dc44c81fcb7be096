// Package action アクションの実行と種別ごとの排他制御
package action

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	domain "command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// WebhookClient 外部サービス呼び出しクライアント
type WebhookClient interface {
	// Call リクエストを送りレスポンス本文を返す
	Call(ctx context.Context, req WebhookRequest) (string, error)
}

// WebhookRequest 外部サービスへのリクエスト
type WebhookRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Dependencies Executorの外部コラボレーター
type Dependencies struct {
	Chat     port.ChatSink
	Overlay  port.OverlaySink
	Ledger   port.Ledger
	Webhook  WebhookClient
	Resolver *Resolver
}

// Executor アクション実行器
// 同じ種別のアクションはExecutorインスタンス全体で1つずつ実行される
type Executor struct {
	deps    Dependencies
	gates   map[domain.Kind]*semaphore.Weighted
	logger  *otelinfra.Logger
	metrics *otelinfra.Metrics
	tracer  trace.Tracer
}

// NewExecutor 新しいExecutorを作成
func NewExecutor(deps Dependencies, logger *otelinfra.Logger, metrics *otelinfra.Metrics) *Executor {
	gates := make(map[domain.Kind]*semaphore.Weighted)
	for _, k := range domain.Kinds() {
		gates[k] = semaphore.NewWeighted(1)
	}
	return &Executor{
		deps:    deps,
		gates:   gates,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("action-executor"),
	}
}

// Execute アクションを1つ実行する
// 種別のゲートを取得してから実行し、ハンドラのpanicはエラーとして返す
func (e *Executor) Execute(ctx context.Context, a domain.Action, p *command.Parameters) (err error) {
	ctx, span := e.tracer.Start(ctx, "Executor.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("kind", a.Kind.String()))

	if a.Kind.Reserved() {
		e.logger.Debug(ctx, "Skipping reserved action kind", map[string]interface{}{
			"kind": a.Kind.String(),
		})
		return nil
	}
	if err := a.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	gate, ok := e.gates[a.Kind]
	if !ok {
		return fmt.Errorf("%w: no gate for kind %s", domain.ErrInvalidAction, a.Kind)
	}
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer gate.Release(1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", a.Kind, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.metrics.RecordAction(ctx, a.Kind.String(), err == nil, time.Since(start).Seconds())
	}()

	switch a.Kind {
	case domain.KindChat:
		return e.chat(ctx, a.Chat, p)
	case domain.KindOverlay:
		return e.overlay(ctx, a.Overlay, p)
	case domain.KindWebhook:
		return e.webhook(ctx, a.Webhook, p)
	case domain.KindWait:
		return e.wait(ctx, a.Wait)
	case domain.KindCurrency:
		return e.currency(ctx, a.Currency, p)
	case domain.KindSpecialIdentifier:
		return e.specialIdentifier(ctx, a.SpecialIdentifier, p)
	default:
		return fmt.Errorf("%w: unsupported kind %s", domain.ErrInvalidAction, a.Kind)
	}
}

// ExecuteAll アクションを宣言順に1つずつ実行する
// 失敗したアクションはログに残して次へ進む。コンテキストが取り消された場合のみ中断してエラーを返す
func (e *Executor) ExecuteAll(ctx context.Context, actions []domain.Action, p *command.Parameters) (failed int, err error) {
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		if err := e.Execute(ctx, a, p); err != nil {
			if ctx.Err() != nil {
				return failed, ctx.Err()
			}
			failed++
			e.logger.Error(ctx, "Action failed", err, map[string]interface{}{
				"index": i,
				"kind":  a.Kind.String(),
			})
		}
	}
	return failed, nil
}
