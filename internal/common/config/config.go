package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uma-arai/sbcntr-court/internal/common/database"
)

const (
	// BackendPostgres は予約の正本に PostgreSQL を使います
	BackendPostgres = "postgres"
	// BackendFirestore は予約の正本に Firestore を使います
	BackendFirestore = "firestore"

	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

type Config struct {
	DB database.Config `envconfig:"DB"`

	// RemoteBackend は予約とコートの正本の保存先です(postgres | firestore)
	RemoteBackend string `envconfig:"REMOTE_BACKEND" default:"postgres"`
	Firebase      struct {
		ProjectID       string `envconfig:"PROJECT_ID"`
		CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
	} `envconfig:"FIREBASE"`

	Auth struct {
		Mode      string        `envconfig:"MODE" default:"jwt"`
		JWTSecret string        `envconfig:"JWT_SECRET"`
		TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	} `envconfig:"AUTH"`

	// Redis.Addr が空の場合はプロセス内のキャッシュを使います
	Redis struct {
		Addr     string `envconfig:"ADDR"`
		Password string `envconfig:"PASSWORD"`
		DB       int    `envconfig:"DB" default:"0"`
	} `envconfig:"REDIS"`

	// Rabbit.URL が空の場合はイベントを発行しません
	Rabbit struct {
		URL      string `envconfig:"URL"`
		Exchange string `envconfig:"EXCHANGE" default:"sbcntr-court.reservations"`
		Queue    string `envconfig:"QUEUE" default:"sbcntr-court.notifications"`
	} `envconfig:"RABBIT"`

	FacilityTimeZone string `envconfig:"FACILITY_TZ" default:"Europe/Madrid"`

	HTTP struct {
		Addr           string   `envconfig:"ADDR" default:":8080"`
		AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	} `envconfig:"HTTP"`

	// CacheRefreshSpec はキャッシュ全体を再読み込みする cron 式です。空なら定期実行しません
	CacheRefreshSpec string `envconfig:"CACHE_REFRESH_SPEC" default:"@every 15m"`

	SFN struct {
		TaskToken string `ignored:"true"`
	}
	EnableTracing bool `ignored:"true"`

	location *time.Location
}

// LoadConfig は設定を読み込みます
// .env があれば先に環境変数へ読み込みます
func LoadConfig(taskToken string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	cfg.SFN.TaskToken = taskToken

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.FacilityTimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load facility time zone %q: %w", cfg.FacilityTimeZone, err)
	}
	cfg.location = loc

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RemoteBackend {
	case BackendPostgres, BackendFirestore:
	default:
		return fmt.Errorf("unknown REMOTE_BACKEND: %s", c.RemoteBackend)
	}
	switch c.Auth.Mode {
	case AuthModeJWT, AuthModeFirebase:
	default:
		return fmt.Errorf("unknown AUTH_MODE: %s", c.Auth.Mode)
	}
	return nil
}

// Location は施設のタイムゾーンです
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
