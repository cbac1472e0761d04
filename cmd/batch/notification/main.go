package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
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
	"github.com/uma-arai/sbcntr-court/internal/events"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/service/batch"
)

const (
	projectName = "sbcntr-court-notification"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	input := flag.String("input", "", `予約イベントのJSON({"events":[...]})`)
	fromQueue := flag.Bool("queue", false, "RabbitMQ のキューに溜まった予約イベントも処理する")
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

	reservationEvents, err := parseEvents(*input)
	if err != nil {
		log.Fatalf("Failed to parse events: %v", err)
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

	// コンテキストを作成
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSegment(ctx, projectName)
	defer seg.Close(nil)
	if err := seg.AddMetadata("event_count", len(reservationEvents)); err != nil {
		log.Printf("Failed to add event_count metadata: %v", err)
	}

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v\nStack trace:\n%s", err, debug.Stack())
	}
	defer b.Close()

	notificationRepo, err := b.Notifications(ctx)
	if err != nil {
		log.Fatalf("Failed to create notification repository: %v", err)
	}

	// 通知バッチサービスを作成
	service := batch.NewNotificationBatchService(notificationRepo, b.Courts, sfnClient, taskToken)
	service.SetArgs(reservationEvents)

	if *fromQueue {
		if cfg.Rabbit.URL == "" {
			log.Fatalf("RABBIT_URL is required with -queue")
		}
		source, err := events.NewQueueSource(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.Queue)
		if err != nil {
			log.Fatalf("Failed to open reservation event queue: %v", err)
		}
		defer source.Close()
		service.SetSource(source)
	}

	// シグナルハンドリング
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// バッチ処理の実行
	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	// シグナルを待機
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Printf("Batch process failed: %v", utils.GetStackWithError(err))
			if sfnClient != nil {
				batch.SendTaskFailure(context.Background(), sfnClient, taskToken, err)
			}
			os.Exit(1)
		}
		log.Println("Batch process completed successfully")
	}
}

// parseEvents は -input で渡された予約イベントを読み込みます
func parseEvents(input string) ([]model.ReservationEvent, error) {
	if input == "" {
		return nil, nil
	}
	var payload struct {
		Events []model.ReservationEvent `json:"events"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return payload.Events, nil
}
