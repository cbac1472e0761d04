package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// NotificationRepository は通知の永続化を担当するインターフェースです
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, records []model.NotificationRecord) (int, error)
	GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	MarkAsRead(ctx context.Context, userID string, id int) error
}

// NotificationRepositoryImpl は通知の永続化を担当します
type NotificationRepositoryImpl struct {
	db *DB
}

// NewNotificationRepository は新しいNotificationRepositoryを作成します
func NewNotificationRepository(db *DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{
		db: db,
	}
}

// CreateNotifications は複数の通知レコードを1トランザクションで作成します
// 同じ予約・種類の通知が既にある場合はスキップし、作成した件数を返します
func (r *NotificationRepositoryImpl) CreateNotifications(ctx context.Context, records []model.NotificationRecord) (created int, err error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.CreateNotifications")
	defer seg.Close(nil)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		seg.Close(err)
		return 0, apperror.Network(fmt.Errorf("failed to begin transaction: %w", err))
	}

	// エラーが発生した場合のみロールバックを実行
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("rollback failed: %v, original error: %v", rbErr, err)
			}
		}
	}()

	for i := range records {
		inserted, cerr := r.create(ctx, tx, &records[i])
		if cerr != nil {
			err = cerr
			seg.Close(err)
			return 0, apperror.Network(fmt.Errorf("failed to create notification: %w", err))
		}
		if inserted {
			created++
		}
	}

	if err = tx.Commit(); err != nil {
		seg.Close(err)
		return 0, apperror.Network(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return created, nil
}

func (r *NotificationRepositoryImpl) create(ctx context.Context, tx *sqlx.Tx, record *model.NotificationRecord) (bool, error) {
	query := `
		INSERT INTO notifications (
			reservation_id, user_id, title, message, is_read, type, created_at, updated_at
		) VALUES (
			NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT DO NOTHING
		RETURNING id`

	rows, err := tx.QueryContext(ctx,
		query,
		record.ReservationID,
		record.UserID,
		record.Title,
		record.Message,
		record.IsRead,
		record.Type,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(&record.ID); err != nil {
		return false, err
	}
	return true, rows.Err()
}

// GetByUserID は指定されたユーザーIDの通知を新しい順に取得します
func (r *NotificationRepositoryImpl) GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.GetByUserID")
	defer seg.Close(nil)

	query := `
		SELECT id, COALESCE(reservation_id, '') AS reservation_id, user_id, title, message, is_read, type, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("failed to query notifications: %w", err))
	}
	defer rows.Close()

	records := []model.NotificationRecord{}
	for rows.Next() {
		var record model.NotificationRecord
		if err := rows.StructScan(&record); err != nil {
			seg.Close(err)
			return nil, apperror.Unknown(fmt.Errorf("failed to scan notification: %w", err))
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("error iterating notifications: %w", err))
	}

	return records, nil
}

// MarkAsRead はユーザー本人の通知を既読にします
func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, userID string, id int) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.MarkAsRead")
	defer seg.Close(nil)

	query := `
		UPDATE notifications
		SET is_read = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		seg.Close(err)
		return apperror.Network(fmt.Errorf("failed to update notification is_read: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return apperror.Unknown(fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		err := apperror.NotFound("notification", fmt.Sprint(id))
		seg.Close(err)
		return err
	}

	return nil
}
