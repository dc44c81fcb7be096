package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	actionapp "command-server/internal/application/action"
	authapp "command-server/internal/application/auth"
	cmdapp "command-server/internal/application/command"
	currencyapp "command-server/internal/application/currency"
	gameapp "command-server/internal/application/game"
	historyapp "command-server/internal/application/history"
	"command-server/internal/application/presence"
	"command-server/internal/application/requirement"
	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
	"command-server/internal/domain/service"
	"command-server/internal/infrastructure/assets"
	"command-server/internal/infrastructure/catalog"
	"command-server/internal/infrastructure/chat"
	"command-server/internal/infrastructure/chat/twitch"
	"command-server/internal/infrastructure/config"
	otelinfra "command-server/internal/infrastructure/observability/otel"
	"command-server/internal/infrastructure/overlay"
	"command-server/internal/infrastructure/persistence/memory"
	"command-server/internal/infrastructure/persistence/mysql"
	"command-server/internal/infrastructure/persistence/sqlite"
	"command-server/internal/infrastructure/random"
	"command-server/internal/infrastructure/webhook"
	grpcserver "command-server/internal/presentation/grpc"
	"command-server/internal/presentation/rest"
)

const (
	sweepInterval  = time.Minute
	healthInterval = 30 * time.Second
)

// sweepableCooldowns 期限切れを掃除できるクールダウンストア
type sweepableCooldowns interface {
	command.CooldownStore
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenTelemetryの初期化
	tracerShutdown, err := otelinfra.InitTracer(ctx, &cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	meterShutdown, err := otelinfra.InitMeter(ctx, &cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize meter: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown meter: %v", err)
		}
	}()

	// ロガーとメトリクスの初期化
	logOut, closeLog := otelinfra.NewLogWriter(&cfg.Log)
	defer func() { _ = closeLog() }()
	logger := otelinfra.NewLogger(logOut, otelinfra.ParseLogLevel(cfg.Log.Level))
	metrics, err := otelinfra.NewMetrics("command-server")
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	checks := make(map[string]grpcserver.HealthCheck)

	// 台帳の初期化
	var (
		ledger             port.Ledger
		currencyAppService *currencyapp.CurrencyApplicationService
		historyAppService  *historyapp.HistoryApplicationService
	)
	switch cfg.Store.LedgerDriver {
	case "mysql":
		db, err := mysql.NewDB(&cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		currencyRepo := mysql.NewCurrencyRepository(db)
		transactionRepo := mysql.NewTransactionRepository(db)
		txManager := mysql.NewTransactionManager(db)

		currencyAppService = currencyapp.NewCurrencyApplicationService(
			currencyRepo,
			transactionRepo,
			txManager,
			service.NewCurrencyService(currencyRepo),
			logger,
			metrics,
		)
		historyAppService = historyapp.NewHistoryApplicationService(transactionRepo, logger)
		ledger = currencyAppService
		checks["ledger"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	default:
		ledger = memory.NewLedger()
		logger.Warn(ctx, "Using in-memory ledger, balances are lost on restart", nil)
	}

	// クールダウンストアの初期化
	var cooldowns sweepableCooldowns
	switch cfg.Store.CooldownDriver {
	case "sqlite":
		store, err := sqlite.Open(cfg.Store.SQLiteDSN())
		if err != nil {
			log.Fatalf("Failed to open cooldown store: %v", err)
		}
		defer store.Close()
		cooldowns = store
		checks["cooldowns"] = store.Ping
	default:
		cooldowns = memory.NewCooldownStore()
	}

	// 周辺コンポーネントの初期化
	rng := random.New()
	tracker := presence.NewTracker(cfg.Engine.PresenceTTL)
	hub := overlay.NewHub(logger)
	defer hub.Close()

	assetCache, err := assets.NewCache(cfg.Engine.AssetDir, &http.Client{Timeout: cfg.Engine.WebhookTimeout})
	if err != nil {
		log.Fatalf("Failed to create asset cache: %v", err)
	}
	webhookClient := webhook.NewClient(cfg.Engine.WebhookTimeout, nil)

	// チャット接続の初期化
	// 受信ハンドラはディスパッチャー作成後に有効になる
	var dispatcher *cmdapp.Dispatcher
	var chatSink port.ChatSink
	var twitchAdapter *twitch.Adapter
	var directory *twitch.Directory
	if cfg.Twitch.HelixEnabled() {
		directory, err = twitch.NewDirectory(twitch.HelixConfig{
			ClientID:    cfg.Twitch.ClientID,
			AccessToken: cfg.Twitch.HelixToken(),
		}, logger)
		if err != nil {
			log.Fatalf("Failed to create Helix client: %v", err)
		}
	}
	if cfg.Twitch.Enabled {
		twitchAdapter = twitch.NewAdapter(twitch.Config{
			Username:   cfg.Twitch.Username,
			OAuthToken: cfg.Twitch.Token,
			Channels:   cfg.Twitch.Channels,
		}, func(ctx context.Context, msg cmdapp.Message) error {
			return dispatcher.HandleMessage(ctx, msg)
		}, logger)
		if directory != nil {
			twitchAdapter.WithWhisperer(directory)
		}
		chatSink = twitchAdapter
	} else {
		chatSink = chat.NewLogSink(logger)
	}

	// コマンドエンジンの初期化
	gate := requirement.NewGate(ledger, cooldowns, chatSink, logger, metrics, requirement.Options{
		ErrorCooldown:         cfg.Engine.ErrorCooldown,
		CommitOnActionFailure: cfg.Engine.CommitOnActionFailure,
	})
	executor := actionapp.NewExecutor(actionapp.Dependencies{
		Chat:     chatSink,
		Overlay:  hub,
		Ledger:   ledger,
		Webhook:  webhookClient,
		Resolver: actionapp.NewResolver(assetCache, rng),
	}, logger, metrics)
	engine := cmdapp.NewEngine(gate, executor, logger, metrics)

	cat, err := catalog.NewLoader(logger).
		WithDefaultCurrency(cfg.Engine.DefaultCurrency).
		LoadFile(ctx, cfg.Engine.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load command catalog: %v", err)
	}

	gameRuntime := gameapp.Runtime{
		Gate:     gate,
		Actions:  executor,
		Chat:     chatSink,
		Ledger:   ledger,
		RNG:      rng,
		Presence: tracker,
		Logger:   logger,
		Metrics:  metrics,
	}
	for _, cmd := range cat.All() {
		if !cmd.IsGame() || !cmd.Enabled {
			continue
		}
		runner, err := gameapp.NewRunner(cmd, gameRuntime)
		if err != nil {
			log.Fatalf("Failed to create game %s: %v", cmd.ID, err)
		}
		engine.RegisterGame(cmd.ID, runner)
	}

	dispatcher = cmdapp.NewDispatcher(cfg.Engine.Prefix, cat, engine, tracker, logger)
	if directory != nil {
		dispatcher.WithDirectory(directory)
	}

	// REST APIルーターの初期化
	router, err := rest.NewRouter(cfg, logger, metrics, rest.Services{
		Auth:     authapp.NewAuthApplicationService(&cfg.JWT, logger),
		Currency: currencyAppService,
		History:  historyAppService,
		Catalog:  cat,
		Commands: dispatcher,
		Games:    engine,
		Overlay:  http.HandlerFunc(hub.ServeWS),
		Health:   runChecks(checks),
	})
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}

	// gRPCサーバーの初期化
	grpcSrv, err := grpcserver.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create gRPC server: %v", err)
	}

	address := fmt.Sprintf(":%d", cfg.Server.Port)

	// REST APIサーバーを別ゴルーチンで起動
	go func() {
		logger.Info(ctx, "REST API server starting", map[string]interface{}{"address": address})
		if err := router.Start(address); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "REST API server error", err, nil)
			stop()
		}
	}()

	// gRPCサーバーを別ゴルーチンで起動
	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Error(ctx, "gRPC server error", err, nil)
			stop()
		}
	}()
	go grpcSrv.MonitorHealth(ctx, healthInterval, checks)

	if twitchAdapter != nil {
		go func() {
			if err := twitchAdapter.Start(ctx); err != nil {
				logger.Error(ctx, "Twitch chat stopped", err, nil)
			}
		}()
	}

	go sweep(ctx, cooldowns, tracker, logger)

	logger.Info(ctx, "Command engine ready", map[string]interface{}{
		"commands":        cat.Len(),
		"prefix":          cfg.Engine.Prefix,
		"ledger_driver":   cfg.Store.LedgerDriver,
		"cooldown_driver": cfg.Store.CooldownDriver,
		"twitch":          cfg.Twitch.Enabled,
		"helix":           directory != nil,
	})

	// シグナルを待機
	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down servers", nil)

	// グレースフルシャットダウン
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error shutting down REST API server", err, nil)
	}
	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error shutting down gRPC server", err, nil)
	}

	logger.Info(shutdownCtx, "Servers stopped", nil)
}

// runChecks 全ヘルスチェックを名前順に実行し、最初の失敗を返す
func runChecks(checks map[string]grpcserver.HealthCheck) func(ctx context.Context) error {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(ctx context.Context) error {
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}
}

// sweep 期限切れのクールダウンと発言記録を定期的に削除する
func sweep(ctx context.Context, cooldowns sweepableCooldowns, tracker *presence.Tracker, logger *otelinfra.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := cooldowns.Sweep(ctx, now)
			if err != nil {
				logger.Warn(ctx, "Failed to sweep cooldowns", map[string]interface{}{"error": err.Error()})
			}
			logger.Debug(ctx, "Swept expired entries", map[string]interface{}{
				"cooldowns": n,
				"presence":  tracker.Sweep(),
			})
		}
	}
}
