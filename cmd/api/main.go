package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/robfig/cron/v3"
	"github.com/uma-arai/sbcntr-court/internal/api"
	"github.com/uma-arai/sbcntr-court/internal/auth"
	"github.com/uma-arai/sbcntr-court/internal/common/backend"
	"github.com/uma-arai/sbcntr-court/internal/common/config"
	"github.com/uma-arai/sbcntr-court/internal/repository"
	"github.com/uma-arai/sbcntr-court/internal/schedule"
	"github.com/uma-arai/sbcntr-court/internal/service/booking"
)

const (
	projectName = "sbcntr-court-api"
)

func main() {
	issueToken := flag.String("issue-token", "", "指定したユーザーIDのトークンを発行して終了する(AUTH_MODE=jwt のみ)")
	flag.Parse()

	// 設定の読み込み
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		return
	}

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
			ServiceVersion: "1.0.0",
		}); err != nil {
			log.Printf("Failed to configure X-Ray: %v", err)
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v\nStack trace:\n%s", err, debug.Stack())
	}
	defer b.Close()

	verifier, err := newVerifier(ctx, cfg, b)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}

	// 通知は PostgreSQL に接続できる場合のみ公開する
	var notifications repository.NotificationRepository
	if n, err := b.Notifications(ctx); err != nil {
		log.Printf("Notifications are disabled: %v", err)
	} else {
		notifications = n
	}

	clock := schedule.NewSystemClock(cfg.Location())
	reservations := b.Reservations()
	manager := booking.NewManager(reservations, b.Courts, auth.ContextProvider{}, b.Publisher, clock)
	availability := booking.NewAvailabilityResolver(reservations, clock)

	scheduler, err := startCacheRefresh(cfg.CacheRefreshSpec, reservations)
	if err != nil {
		log.Fatalf("Failed to schedule cache refresh: %v", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.NewHandler(manager, availability, b.Courts, notifications), verifier, cfg.HTTP.AllowedOrigins)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           xray.Handler(xray.NewFixedSegmentNamer(projectName), router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down HTTP server: %v", err)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, b *backend.Backend) (auth.TokenVerifier, error) {
	if cfg.Auth.Mode == config.AuthModeFirebase {
		client, err := b.FirebaseAuth(ctx)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	}
	return auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

func printToken(cfg *config.Config, userID string) error {
	if cfg.Auth.Mode != config.AuthModeJWT {
		return fmt.Errorf("tokens can only be issued with AUTH_MODE=%s", config.AuthModeJWT)
	}
	v, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := v.Issue(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// startCacheRefresh はキャッシュ全体の再読み込みを定期実行します
// 実行ごとに X-Ray のセグメントを作成します
func startCacheRefresh(spec string, reservations *repository.Reservations) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, seg := xray.BeginSegment(context.Background(), projectName+"-cache-refresh")
		n, err := reservations.RefreshAll(ctx)
		seg.Close(err)
		if err != nil {
			log.Printf("Scheduled cache refresh failed: %v", err)
			return
		}
		log.Printf("Scheduled cache refresh loaded %d reservations", n)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
