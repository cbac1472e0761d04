package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/lib/pq"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

const uniqueViolation = "23505"

const reservationColumns = `
	id,
	user_id,
	court_id,
	reservation_date,
	start_time,
	duration_minutes,
	status,
	created_at`

// ReservationRepositoryImpl は PostgreSQL を正本とする ReservationStore の実装です
type ReservationRepositoryImpl struct {
	db *DB
}

func NewReservationRepository(db *DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

func (r *ReservationRepositoryImpl) selectReservations(ctx context.Context, name, where string, args ...interface{}) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository."+name)
	defer seg.Close(nil)

	query := `SELECT` + reservationColumns + `
		FROM reservations
		` + where + `
		ORDER BY reservation_date ASC, start_time ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("failed to query reservations: %w", err))
	}
	defer rows.Close()

	reservations := []model.Reservation{}
	for rows.Next() {
		var res model.Reservation
		if err := rows.StructScan(&res); err != nil {
			seg.Close(err)
			return nil, apperror.Unknown(fmt.Errorf("failed to scan reservation row: %w", err))
		}
		reservations = append(reservations, res)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("error iterating reservation rows: %w", err))
	}

	return reservations, nil
}

// ActiveByCourtAndDate は指定コート・日付の active な予約を取得します
func (r *ReservationRepositoryImpl) ActiveByCourtAndDate(ctx context.Context, courtID string, date model.Date) ([]model.Reservation, error) {
	return r.selectReservations(ctx, "ActiveByCourtAndDate",
		`WHERE court_id = $1 AND reservation_date = $2 AND status = 'active'`, courtID, date)
}

// ActiveByUser は保存上 active なユーザーの予約を取得します。終了済みの枠も含みます
func (r *ReservationRepositoryImpl) ActiveByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return r.selectReservations(ctx, "ActiveByUser",
		`WHERE user_id = $1 AND status = 'active'`, userID)
}

func (r *ReservationRepositoryImpl) ByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return r.selectReservations(ctx, "ByUser", `WHERE user_id = $1`, userID)
}

func (r *ReservationRepositoryImpl) All(ctx context.Context) ([]model.Reservation, error) {
	return r.selectReservations(ctx, "All", "")
}

// ByID は予約を1件取得します。存在しない場合は nil を返します
func (r *ReservationRepositoryImpl) ByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ByID")
	defer seg.Close(nil)

	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE id = $1`

	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("failed to get reservation %s: %w", id, err))
	}

	return &res, nil
}

// Insert は予約を作成します
// 同じ枠の active な予約がある場合は部分ユニークインデックスにより SlotNotAvailable になります
func (r *ReservationRepositoryImpl) Insert(ctx context.Context, res model.Reservation) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.Insert")
	defer seg.Close(nil)

	query := `
		INSERT INTO reservations (
			id,
			user_id,
			court_id,
			reservation_date,
			start_time,
			duration_minutes,
			status,
			created_at,
			updated_at
		) VALUES (
			:id,
			:user_id,
			:court_id,
			:reservation_date,
			:start_time,
			:duration_minutes,
			:status,
			:created_at,
			:created_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		seg.Close(err)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperror.Validation(apperror.RuleSlotNotAvailable)
		}
		return apperror.Network(fmt.Errorf("failed to insert reservation: %w", err))
	}

	return nil
}

// UpdateStatus は予約のステータスを更新します
func (r *ReservationRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.UpdateStatus")
	defer seg.Close(nil)

	query := `
		UPDATE reservations
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		seg.Close(err)
		return apperror.Network(fmt.Errorf("failed to update reservation status: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return apperror.Unknown(fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		err := apperror.NotFound("reservation", id)
		seg.Close(err)
		return err
	}

	return nil
}
