package batch

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/repository"
)

// queueBatchSize はキューから一度に取り出すイベント数です
const queueBatchSize = 100

// EventSource はキューに溜まった予約イベントの取り出し元です
type EventSource interface {
	Drain(ctx context.Context, max int, handle func(context.Context, []model.ReservationEvent) error) (int, error)
}

// NotificationResult は通知バッチの出力です
type NotificationResult struct {
	Events  int `json:"events"`
	Created int `json:"created"`
}

// NotificationBatchService は通知バッチ処理を担当します
type NotificationBatchService struct {
	args             []model.ReservationEvent
	source           EventSource
	notificationRepo repository.NotificationRepository
	courtRepo        repository.CourtCatalog
	sfnClient        TaskNotifier
	taskToken        string

	result NotificationResult
}

// NewNotificationBatchService は新しいNotificationBatchServiceを作成します
func NewNotificationBatchService(notificationRepo repository.NotificationRepository, courtRepo repository.CourtCatalog, sfnClient TaskNotifier, taskToken string) *NotificationBatchService {
	return &NotificationBatchService{
		notificationRepo: notificationRepo,
		courtRepo:        courtRepo,
		sfnClient:        sfnClient,
		taskToken:        taskToken,
	}
}

// SetArgs は通知バッチ処理の引数を設定します
func (s *NotificationBatchService) SetArgs(args []model.ReservationEvent) {
	s.args = args
}

// SetSource はキューからイベントを取り出すように設定します
func (s *NotificationBatchService) SetSource(source EventSource) {
	s.source = source
}

// Result は直前の Run で処理した件数を返します
func (s *NotificationBatchService) Result() NotificationResult {
	return s.result
}

// Run は通知バッチ処理を実行します
// 引数のイベントを処理した後、キューが設定されていれば空になるまで取り出して処理します
func (s *NotificationBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.Run")
	defer seg.Close(nil)

	s.result = NotificationResult{}
	log.Printf("Starting notification batch process for %d events...", len(s.args))

	startTime := time.Now()

	if err := s.process(ctx, s.args); err != nil {
		seg.Close(err)
		return err
	}

	if s.source != nil {
		for {
			n, err := s.source.Drain(ctx, queueBatchSize, s.process)
			if err != nil {
				seg.Close(err)
				return fmt.Errorf("failed to drain reservation events: %w", err)
			}
			if n == 0 {
				break
			}
		}
	}

	if err := sendTaskSuccess(ctx, s.sfnClient, s.taskToken, s.result); err != nil {
		seg.Close(err)
		return err
	}

	duration := time.Since(startTime)
	if err := seg.AddMetadata("event_count", s.result.Events); err != nil {
		log.Printf("Failed to add event_count metadata: %v", err)
	}
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}

	log.Printf("Notification batch process completed successfully. events=%d created=%d duration=%v",
		s.result.Events, s.result.Created, duration)
	return nil
}

func (s *NotificationBatchService) process(ctx context.Context, events []model.ReservationEvent) error {
	if len(events) == 0 {
		return nil
	}

	courtNameMap, err := s.getCourtNameMap(ctx, events)
	if err != nil {
		return err
	}

	records := make([]model.NotificationRecord, len(events))
	for i, event := range events {
		record, err := event.ToNotificationRecord(courtNameMap)
		if err != nil {
			return err
		}
		records[i] = *record
	}

	created, err := s.notificationRepo.CreateNotifications(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	s.result.Events += len(events)
	s.result.Created += created
	return nil
}

// イベントに含まれるコートIDから表示名を取得する
// N+1とならないように先に重複がないコートIDを取得をしておく
func (s *NotificationBatchService) getCourtNameMap(ctx context.Context, events []model.ReservationEvent) (map[string]string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.getCourtNameMap")
	defer seg.Close(nil)

	courtIDs := make([]string, 0)
	for _, event := range events {
		if event.CourtID == "" || slices.Contains(courtIDs, event.CourtID) {
			continue
		}
		courtIDs = append(courtIDs, event.CourtID)
	}

	if err := seg.AddMetadata("unique_court_count", len(courtIDs)); err != nil {
		log.Printf("Failed to add unique_court_count metadata: %v", err)
	}

	courtNameMap := make(map[string]string, len(courtIDs))
	for _, courtID := range courtIDs {
		court, err := s.courtRepo.GetCourtByID(ctx, courtID)
		if err != nil {
			seg.Close(err)
			return nil, err
		}
		if court == nil {
			err := fmt.Errorf("court %s not found", courtID)
			seg.Close(err)
			return nil, err
		}
		courtNameMap[courtID] = court.DisplayName()
	}

	return courtNameMap, nil
}
