package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SBCNTR_ENABLE_TRACING", "")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "")

	cfg, err := LoadConfig("token-1")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 || cfg.DB.DBName != "sbcntrapp" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.RemoteBackend != BackendPostgres || cfg.Auth.Mode != AuthModeJWT {
		t.Errorf("backend = %s, auth = %s", cfg.RemoteBackend, cfg.Auth.Mode)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Location().String() != "Europe/Madrid" {
		t.Errorf("Location = %v", cfg.Location())
	}
	if cfg.SFN.TaskToken != "token-1" {
		t.Errorf("TaskToken = %s", cfg.SFN.TaskToken)
	}
	if cfg.EnableTracing || os.Getenv("AWS_XRAY_SDK_DISABLED") != "TRUE" {
		t.Error("tracing should be disabled by default")
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REMOTE_BACKEND", "firestore")
	t.Setenv("AUTH_MODE", "firebase")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("FACILITY_TZ", "UTC")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "")
	t.Setenv("SBCNTR_ENABLE_TRACING", "1")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 6543 {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.RemoteBackend != BackendFirestore || cfg.Auth.Mode != AuthModeFirebase {
		t.Errorf("backend = %s, auth = %s", cfg.RemoteBackend, cfg.Auth.Mode)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %s", cfg.Redis.Addr)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.EnableTracing || os.Getenv("AWS_XRAY_SDK_DISABLED") != "FALSE" {
		t.Error("tracing should be enabled")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"未知のバックエンド", "REMOTE_BACKEND", "mysql"},
		{"未知の認証方式", "AUTH_MODE", "basic"},
		{"未知のタイムゾーン", "FACILITY_TZ", "Mars/Olympus"},
		{"数値でないポート", "DB_PORT", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadConfig(""); err == nil {
				t.Errorf("LoadConfig() with %s=%s should fail", tt.key, tt.val)
			}
		})
	}
}
