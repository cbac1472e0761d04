package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-court/internal/common/utils"
)

// CacheRefresher はキャッシュ全体を正本から読み込み直します
type CacheRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// TaskNotifier は Step Functions へのタスク結果の通知です
type TaskNotifier interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
	SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error)
}

// ResyncResult は再同期バッチの出力です
type ResyncResult struct {
	Refreshed int       `json:"refreshed"`
	SyncedAt  time.Time `json:"synced_at"`
}

// ResyncBatchService は予約キャッシュの再同期バッチ処理を担当します
type ResyncBatchService struct {
	refresher CacheRefresher
	sfnClient TaskNotifier
	taskToken string
	now       func() time.Time
}

// NewResyncBatchService は新しいResyncBatchServiceを作成します
// sfnClient が nil の場合は Step Functions への通知を行いません
func NewResyncBatchService(refresher CacheRefresher, sfnClient TaskNotifier, taskToken string) *ResyncBatchService {
	return &ResyncBatchService{
		refresher: refresher,
		sfnClient: sfnClient,
		taskToken: taskToken,
		now:       time.Now,
	}
}

// Run は再同期バッチ処理を実行します
func (s *ResyncBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ResyncBatchService.Run")
	defer seg.Close(nil)

	startTime := s.now()

	refreshed, err := s.refresher.RefreshAll(ctx)
	if err != nil {
		seg.Close(err)
		return utils.GetStackWithError(fmt.Errorf("failed to refresh reservation cache: %w", err))
	}
	log.Printf("Refreshed %d reservations into the local cache", refreshed)

	result := ResyncResult{Refreshed: refreshed, SyncedAt: s.now()}
	if err := s.sendTaskSuccess(ctx, result); err != nil {
		seg.Close(err)
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	duration := s.now().Sub(startTime)
	if err := seg.AddMetadata("refreshed", refreshed); err != nil {
		log.Printf("Failed to add refreshed metadata: %v", err)
	}
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}

	log.Printf("Resync batch process completed successfully. Duration: %v", duration)
	return nil
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知します
func (s *ResyncBatchService) sendTaskSuccess(ctx context.Context, result ResyncResult) error {
	return sendTaskSuccess(ctx, s.sfnClient, s.taskToken, result)
}

func sendTaskSuccess(ctx context.Context, client TaskNotifier, taskToken string, result any) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || client == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}
	if taskToken == "" {
		return fmt.Errorf("task token is not set")
	}

	output, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task output: %w", err)
	}

	_, err = client.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success: %s", string(output))
	return nil
}

// SendTaskFailure は、Step Functionsのタスク失敗を通知します
func SendTaskFailure(ctx context.Context, client TaskNotifier, taskToken string, cause error) {
	if os.Getenv("ENV") == "LOCAL" || client == nil || taskToken == "" {
		return
	}
	_, err := client.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(taskToken),
		Error:     aws.String("Batch process failed"),
		Cause:     aws.String(cause.Error()),
	})
	if err != nil {
		log.Printf("Failed to send task failure: %v", err)
	}
}
