package database

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	UserName string `envconfig:"USERNAME" default:"sbcntrapp"`
	Password string `envconfig:"PASSWORD" default:"password"`
	DBName   string `envconfig:"NAME" default:"sbcntrapp"`
}

// DSN は lib/pq 形式の接続文字列を返します
// localhostのDBの場合はSSLを無効化
func (cfg Config) DSN() string {
	var sslModeValue string
	if cfg.Host == "localhost" || os.Getenv("DB_HOST") == "localhost" {
		sslModeValue = "disable"
	} else {
		sslModeValue = "require" // 本番環境ではSSLを有効にする
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.UserName,
		cfg.Password,
		cfg.DBName,
		sslModeValue,
	)
}

// Open は X-Ray 対応の PostgreSQL 接続を開きます
func Open(cfg Config) (*sqlx.DB, error) {
	// X-Ray対応のSQLコンテキストを作成
	db, err := xray.SQLContext("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database with X-Ray: %w", err)
	}

	// コネクションプールの設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 接続テスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlx.NewDb(db, "postgres"), nil
}
