package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-court/internal/common/backend"
	"github.com/uma-arai/sbcntr-court/internal/common/config"
	"github.com/uma-arai/sbcntr-court/internal/common/utils"
	"github.com/uma-arai/sbcntr-court/internal/service/batch"
)

const (
	projectName = "sbcntr-court-resync"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	flag.Parse()

	// 最後の引数として渡されたタスクトークンを取得
	// ENV=LOCALの場合はタスクトークンを取得しない
	taskToken := "DUMMY_TASK_TOKEN"
	if os.Getenv("ENV") != "LOCAL" {
		if flag.NArg() == 0 || flag.Arg(flag.NArg()-1) == "" {
			log.Fatalf("Task token is required")
		}
		taskToken = flag.Arg(flag.NArg() - 1)
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig(taskToken)
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
			ServiceVersion: "1.0.0",
		}); err != nil {
			log.Printf("Failed to configure X-Ray: %v", err)
			// X-Ray設定失敗時はデフォルトの設定を使用
			if configErr := xray.Configure(xray.Config{}); configErr != nil {
				log.Fatalf("Failed to configure default X-Ray settings: %v", configErr)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	// Step Functionsクライアントの初期化
	var sfnClient batch.TaskNotifier
	if os.Getenv("ENV") != "LOCAL" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v\nStack trace:\n%s", err, debug.Stack())
		}
		sfnClient = sfn.NewFromConfig(awsCfg)
	}

	// コンテキストの作成
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSegment(ctx, projectName)
	defer seg.Close(nil)
	if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
		log.Printf("Failed to add timeout metadata: %v", err)
	}

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v\nStack trace:\n%s", err, debug.Stack())
	}
	defer b.Close()

	// プロセス内キャッシュはこのバッチの終了とともに消えるため、共有キャッシュが必須
	if !b.SharedCache() {
		log.Fatalf("REDIS_ADDR is required for the resync batch")
	}

	service := batch.NewResyncBatchService(b.Reservations(), sfnClient, taskToken)

	// シグナルハンドリングの設定
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// バッチ処理の実行
	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	// シグナルまたはエラーの待機
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Printf("Batch process failed: %v", err)
			// ローカル環境以外の場合のみStep Functionsのエラー通知を行う
			if sfnClient != nil {
				batch.SendTaskFailure(context.Background(), sfnClient, taskToken, err)
			}
			b.Close()
			os.Exit(1)
		}
		log.Println("Batch process completed successfully")
	}
}
