package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	reservationsCollection = "reservations"
	courtsCollection       = "courts"
)

// reservationDoc は Firestore 上の予約ドキュメントです
// year, month, dayOfWeek は範囲検索用のインデックス項目です
type reservationDoc struct {
	ID              string `firestore:"id"`
	UserID          string `firestore:"userId"`
	CourtID         string `firestore:"courtId"`
	ReservationDate string `firestore:"reservationDate"`
	StartTime       string `firestore:"startTime"`
	DurationMinutes int    `firestore:"durationMinutes"`
	Status          string `firestore:"status"`
	CreatedAt       int64  `firestore:"createdAt"`
	Year            int    `firestore:"year"`
	Month           int    `firestore:"month"`
	DayOfWeek       int    `firestore:"dayOfWeek"`
}

func toReservationDoc(r model.Reservation) reservationDoc {
	// 月曜=1 ... 日曜=7
	dow := int(r.Date.Weekday())
	if dow == 0 {
		dow = 7
	}
	return reservationDoc{
		ID:              r.ID,
		UserID:          r.UserID,
		CourtID:         r.CourtID,
		ReservationDate: r.Date.String(),
		StartTime:       r.StartTime.String(),
		DurationMinutes: r.DurationMinutes,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt.UnixMilli(),
		Year:            r.Date.Year,
		Month:           int(r.Date.Month),
		DayOfWeek:       dow,
	}
}

func (d reservationDoc) toModel() (model.Reservation, error) {
	date, err := model.ParseDate(d.ReservationDate)
	if err != nil {
		return model.Reservation{}, err
	}
	start, err := model.ParseTimeOfDay(d.StartTime)
	if err != nil {
		return model.Reservation{}, err
	}
	duration := d.DurationMinutes
	if duration == 0 {
		duration = model.SlotDurationMinutes
	}
	return model.Reservation{
		ID:              d.ID,
		UserID:          d.UserID,
		CourtID:         d.CourtID,
		Date:            date,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          model.ParseReservationStatus(d.Status),
		CreatedAt:       time.UnixMilli(d.CreatedAt),
	}, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// FirestoreReservationRepository は Firestore を正本とする ReservationStore の実装です
type FirestoreReservationRepository struct {
	client *firestore.Client
}

func NewFirestoreReservationRepository(client *firestore.Client) *FirestoreReservationRepository {
	return &FirestoreReservationRepository{client: client}
}

func (r *FirestoreReservationRepository) collect(ctx context.Context, q firestore.Query) ([]model.Reservation, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	reservations := []model.Reservation{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperror.Network(fmt.Errorf("failed to query reservations: %w", err))
		}
		var doc reservationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, apperror.Unknown(fmt.Errorf("failed to decode reservation %s: %w", snap.Ref.ID, err))
		}
		if doc.ID == "" {
			doc.ID = snap.Ref.ID
		}
		res, err := doc.toModel()
		if err != nil {
			return nil, apperror.Unknown(fmt.Errorf("invalid reservation %s: %w", snap.Ref.ID, err))
		}
		reservations = append(reservations, res)
	}

	sortReservations(reservations)
	return reservations, nil
}

func (r *FirestoreReservationRepository) ActiveByCourtAndDate(ctx context.Context, courtID string, date model.Date) ([]model.Reservation, error) {
	q := r.client.Collection(reservationsCollection).
		Where("courtId", "==", courtID).
		Where("reservationDate", "==", date.String()).
		Where("status", "==", string(model.StatusActive))
	return r.collect(ctx, q)
}

func (r *FirestoreReservationRepository) ActiveByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	q := r.client.Collection(reservationsCollection).
		Where("userId", "==", userID).
		Where("status", "==", string(model.StatusActive))
	return r.collect(ctx, q)
}

func (r *FirestoreReservationRepository) ByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	q := r.client.Collection(reservationsCollection).Where("userId", "==", userID)
	return r.collect(ctx, q)
}

func (r *FirestoreReservationRepository) All(ctx context.Context) ([]model.Reservation, error) {
	return r.collect(ctx, r.client.Collection(reservationsCollection).Query)
}

func (r *FirestoreReservationRepository) ByID(ctx context.Context, id string) (*model.Reservation, error) {
	snap, err := r.client.Collection(reservationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperror.Network(fmt.Errorf("failed to get reservation %s: %w", id, err))
	}
	var doc reservationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, apperror.Unknown(fmt.Errorf("failed to decode reservation %s: %w", id, err))
	}
	if doc.ID == "" {
		doc.ID = snap.Ref.ID
	}
	res, err := doc.toModel()
	if err != nil {
		return nil, apperror.Unknown(fmt.Errorf("invalid reservation %s: %w", id, err))
	}
	return &res, nil
}

// Insert はドキュメントを新規作成します。同じIDが既にあれば失敗します
func (r *FirestoreReservationRepository) Insert(ctx context.Context, res model.Reservation) error {
	_, err := r.client.Collection(reservationsCollection).Doc(res.ID).Create(ctx, toReservationDoc(res))
	if err != nil {
		return apperror.Network(fmt.Errorf("failed to insert reservation: %w", err))
	}
	return nil
}

func (r *FirestoreReservationRepository) UpdateStatus(ctx context.Context, id string, st model.ReservationStatus) error {
	_, err := r.client.Collection(reservationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
	})
	if err != nil {
		if isNotFound(err) {
			return apperror.NotFound("reservation", id)
		}
		return apperror.Network(fmt.Errorf("failed to update reservation status: %w", err))
	}
	return nil
}

// FirestoreCourtRepository は Firestore 上のコートカタログです
type FirestoreCourtRepository struct {
	client *firestore.Client
}

func NewFirestoreCourtRepository(client *firestore.Client) *FirestoreCourtRepository {
	return &FirestoreCourtRepository{client: client}
}

func (r *FirestoreCourtRepository) GetCourtByID(ctx context.Context, id string) (*model.Court, error) {
	snap, err := r.client.Collection(courtsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperror.Network(fmt.Errorf("failed to get court %s: %w", id, err))
	}
	var court model.Court
	if err := snap.DataTo(&court); err != nil {
		return nil, apperror.Unknown(fmt.Errorf("failed to decode court %s: %w", id, err))
	}
	if court.ID == "" {
		court.ID = snap.Ref.ID
	}
	return &court, nil
}

func (r *FirestoreCourtRepository) ListCourts(ctx context.Context) ([]model.Court, error) {
	docs, err := r.client.Collection(courtsCollection).
		OrderBy("displayOrder", firestore.Asc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, apperror.Network(fmt.Errorf("failed to list courts: %w", err))
	}

	courts := make([]model.Court, 0, len(docs))
	for _, snap := range docs {
		var court model.Court
		if err := snap.DataTo(&court); err != nil {
			return nil, apperror.Unknown(fmt.Errorf("failed to decode court %s: %w", snap.Ref.ID, err))
		}
		if court.ID == "" {
			court.ID = snap.Ref.ID
		}
		courts = append(courts, court)
	}
	return courts, nil
}
