package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config アプリケーション全体の設定
type Config struct {
	Server        ServerConfig        `envPrefix:"SERVER_"`
	Database      DatabaseConfig      `envPrefix:"DB_"`
	JWT           JWTConfig           `envPrefix:"JWT_"`
	AdminAPI      AdminAPIConfig      `envPrefix:"ADMIN_API_"`
	OpenTelemetry OpenTelemetryConfig `envPrefix:"OTEL_"`
	Engine        EngineConfig        `envPrefix:"ENGINE_"`
	Twitch        TwitchConfig        `envPrefix:"TWITCH_"`
	Store         StoreConfig         `envPrefix:"STORE_"`
	Log           LogConfig           `envPrefix:"LOG_"`
	Environment   string              `env:"ENVIRONMENT" envDefault:"development"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port         int           `env:"PORT" envDefault:"8080"`
	GRPCPort     int           `env:"GRPC_PORT" envDefault:"9090"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// DatabaseConfig データベース設定
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"3306"`
	User            string        `env:"USER" envDefault:"root"`
	Password        string        `env:"PASSWORD"`
	Database        string        `env:"NAME" envDefault:"command_db"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

// JWTConfig JWT設定
type JWTConfig struct {
	Secret     string        `env:"SECRET"`
	Expiration time.Duration `env:"EXPIRATION" envDefault:"24h"`
	Issuer     string        `env:"ISSUER" envDefault:"command-server"`
}

// AdminAPIConfig 管理API設定
type AdminAPIConfig struct {
	APIKey     string   `env:"KEY"`
	AllowedIPs []string `env:"ALLOWED_IPS" envSeparator:","` // IPまたはCIDR。空なら制限なし
}

// AllowsIP IPアドレスが許可リストに含まれるかを返す（許可リストが空なら常にtrue）
// 解釈できない許可リストの要素は無視する
func (c *AdminAPIConfig) AllowsIP(ip string) bool {
	if len(c.AllowedIPs) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, v := range c.AllowedIPs {
		v = strings.TrimSpace(v)
		if p, err := netip.ParsePrefix(v); err == nil {
			if p.Masked().Contains(addr) {
				return true
			}
			continue
		}
		if a, err := netip.ParseAddr(v); err == nil && a.Unmap() == addr {
			return true
		}
	}
	return false
}

// OpenTelemetryConfig OpenTelemetry設定
type OpenTelemetryConfig struct {
	Enabled         bool   `env:"ENABLED" envDefault:"true"`
	ServiceName     string `env:"SERVICE_NAME" envDefault:"command-server"`
	ServiceVersion  string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	OTLPEndpoint    string `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"http://localhost:4318"`
	OTLPInsecure    bool   `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	TraceExporter   string `env:"TRACES_EXPORTER" envDefault:"otlp"`  // "otlp", "none"
	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"otlp"` // "otlp", "none"
}

// EngineConfig コマンドエンジン設定
type EngineConfig struct {
	Prefix                string        `env:"PREFIX" envDefault:"!"`
	CatalogPath           string        `env:"CATALOG_PATH" envDefault:"configs/commands.yaml"`
	ErrorCooldown         time.Duration `env:"ERROR_COOLDOWN" envDefault:"10s"`
	CommitOnActionFailure bool          `env:"COMMIT_ON_ACTION_FAILURE" envDefault:"true"`
	DefaultCurrency       string        `env:"DEFAULT_CURRENCY" envDefault:"points"`
	PresenceTTL           time.Duration `env:"PRESENCE_TTL" envDefault:"30m"`
	WebhookTimeout        time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	AssetDir              string        `env:"ASSET_DIR" envDefault:"data/assets"`
}

// TwitchConfig Twitchチャット接続設定
type TwitchConfig struct {
	Enabled  bool     `env:"ENABLED" envDefault:"false"`
	Username string   `env:"USERNAME"`
	Token    string   `env:"TOKEN"`
	Channels []string `env:"CHANNELS" envSeparator:","`
	// ClientID Helix API用。未設定ならウィスパーとユーザー検索は無効
	ClientID string `env:"CLIENT_ID"`
}

// HelixToken Helix APIに渡すユーザーアクセストークン（IRC用の"oauth:"接頭辞を除く）
func (c *TwitchConfig) HelixToken() string {
	return strings.TrimPrefix(c.Token, "oauth:")
}

// HelixEnabled Helix APIを使えるかどうかを返す
func (c *TwitchConfig) HelixEnabled() bool {
	return c.Enabled && c.ClientID != ""
}

// StoreConfig ローカルストア設定
type StoreConfig struct {
	LedgerDriver   string `env:"LEDGER_DRIVER" envDefault:"mysql"`    // "mysql" or "memory"
	CooldownDriver string `env:"COOLDOWN_DRIVER" envDefault:"sqlite"` // "sqlite" or "memory"
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"data/cooldowns.db"`
}

// LogConfig ログ出力設定
type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"INFO"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

// Load 設定を読み込む
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// 必須設定の検証
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate 設定の検証
func (c *Config) validate() error {
	switch c.Store.LedgerDriver {
	case "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_LEDGER_DRIVER must be mysql or memory")
	}
	switch c.Store.CooldownDriver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_COOLDOWN_DRIVER must be sqlite or memory")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Engine.Prefix == "" {
		return fmt.Errorf("ENGINE_PREFIX must not be empty")
	}
	if c.Engine.ErrorCooldown < 0 {
		return fmt.Errorf("ENGINE_ERROR_COOLDOWN must not be negative")
	}
	if c.Twitch.Enabled {
		if c.Twitch.Username == "" || c.Twitch.Token == "" {
			return fmt.Errorf("TWITCH_USERNAME and TWITCH_TOKEN are required when TWITCH_ENABLED")
		}
		if len(c.Twitch.Channels) == 0 {
			return fmt.Errorf("TWITCH_CHANNELS is required when TWITCH_ENABLED")
		}
	}
	return nil
}

// IsDevelopment 開発環境かどうかを返す
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN データベース接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// SQLiteDSN SQLite接続文字列を返す
func (c *StoreConfig) SQLiteDSN() string {
	return c.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
