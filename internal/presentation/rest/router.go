package rest

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	authapp "command-server/internal/application/auth"
	currencyapp "command-server/internal/application/currency"
	historyapp "command-server/internal/application/history"
	"command-server/internal/domain/command"
	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	"command-server/internal/presentation/rest/handler"
	restmiddleware "command-server/internal/presentation/rest/middleware"
)

// Services ルーターが公開するサービス群
// CurrencyとHistoryはMySQL台帳のときだけ設定され、nilなら対応するルートを登録しない
type Services struct {
	Auth     *authapp.AuthApplicationService
	Currency *currencyapp.CurrencyApplicationService
	History  *historyapp.HistoryApplicationService
	Catalog  *command.Catalog
	Commands handler.CommandRunner
	Games    handler.GameRegistry
	Overlay  http.Handler
	Health   func(ctx context.Context) error
}

// Router REST APIルーター
type Router struct {
	echo *echo.Echo
}

// NewRouter 新しいRouterを作成
func NewRouter(cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics, svc Services) (*Router, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Echoのデフォルトエラーハンドラーを無効化（エラーハンドリングミドルウェアで処理される）
	e.HTTPErrorHandler = func(err error, c echo.Context) {}

	setupMiddleware(e, cfg, logger, metrics)
	setupRoutes(e, cfg, logger, svc)

	// Swagger UI / ReDoc統合
	SetupSwagger(e)

	return &Router{echo: e}, nil
}

// setupMiddleware ミドルウェアを設定
func setupMiddleware(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-API-Key"},
	}))

	e.Use(middleware.RequestID())
	e.Use(restmiddleware.SecurityHeadersMiddleware())
	e.Use(restmiddleware.TracingMiddleware())
	e.Use(restmiddleware.MetricsMiddleware(metrics))
	e.Use(restmiddleware.LoggingMiddleware(logger))
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func setupRoutes(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, svc Services) {
	// ヘルスチェック（認証不要）
	e.GET("/health", func(c echo.Context) error {
		if svc.Health != nil {
			if err := svc.Health(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// 配信ソフトのブラウザソースが接続するオーバーレイ
	if svc.Overlay != nil {
		e.GET("/ws/overlay", echo.WrapHandler(svc.Overlay))
	}

	// 視聴者API（JWT認証）
	api := e.Group("/api/v1", restmiddleware.AuthMiddleware(svc.Auth, logger))
	if svc.Currency != nil {
		api.GET("/me/balance", handler.NewCurrencyHandler(svc.Currency).GetBalance)
	}
	if svc.History != nil {
		api.GET("/me/transactions", handler.NewHistoryHandler(svc.History).GetTransactionHistory)
	}

	// 管理API（APIキー認証）
	admin := e.Group("/admin", restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger))
	admin.POST("/tokens", handler.NewAuthHandler(svc.Auth).GenerateToken)

	if svc.Currency != nil {
		currencyHandler := handler.NewCurrencyHandler(svc.Currency)
		admin.GET("/users/:user_id/balance", currencyHandler.GetBalanceAdmin)
		admin.POST("/users/:user_id/grant", currencyHandler.GrantCurrency)
		admin.POST("/users/:user_id/consume", currencyHandler.ConsumeCurrency)
	}
	if svc.History != nil {
		admin.GET("/users/:user_id/transactions", handler.NewHistoryHandler(svc.History).GetTransactionHistoryAdmin)
	}

	commandHandler := handler.NewCommandHandler(svc.Catalog, svc.Commands, svc.Games)
	admin.GET("/commands", commandHandler.ListCommands)
	admin.POST("/commands/:trigger/run", commandHandler.RunCommand)
	admin.POST("/messages", commandHandler.InjectMessage)
	admin.GET("/games", commandHandler.ListGames)
}

// Handler HTTPハンドラーを返す
func (r *Router) Handler() http.Handler {
	return r.echo
}

// Start サーバーを起動
func (r *Router) Start(address string) error {
	return r.echo.Start(address)
}

// Shutdown 処理中のリクエストを待ってサーバーを停止
func (r *Router) Shutdown(ctx context.Context) error {
	return r.echo.Shutdown(ctx)
}
