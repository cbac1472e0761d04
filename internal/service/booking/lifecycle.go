package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/auth"
	"github.com/uma-arai/sbcntr-court/internal/events"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/repository"
	"github.com/uma-arai/sbcntr-court/internal/schedule"
)

// ReservationRepository は Manager が使う予約リポジトリです
// 実装は repository.Reservations です
type ReservationRepository interface {
	ReservationLookup
	ByID(ctx context.Context, id string) (*model.Reservation, error)
	Insert(ctx context.Context, r model.Reservation) error
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error
	Get(ctx context.Context, id string) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	RefreshUser(ctx context.Context, userID string) ([]model.Reservation, error)
}

// Manager は検証済みの予約の作成・キャンセルを行います
type Manager struct {
	repo      ReservationRepository
	validator *Validator
	courts    repository.CourtCatalog
	users     auth.CurrentUserProvider
	publisher events.Publisher
	clock     schedule.Clock
	newID     func() string
}

func NewManager(
	repo ReservationRepository,
	courts repository.CourtCatalog,
	users auth.CurrentUserProvider,
	publisher events.Publisher,
	clock schedule.Clock,
) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Manager{
		repo:      repo,
		validator: NewValidator(repo, clock),
		courts:    courts,
		users:     users,
		publisher: publisher,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

// CreateReservation は検証に通った予約をリモート、ローカルの順に保存します
// 検証に失敗した場合は何も書き込みません
func (m *Manager) CreateReservation(ctx context.Context, userID, courtID string, date model.Date, start model.TimeOfDay) (*model.Reservation, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated()
	}
	if err := m.validator.ValidateCreate(ctx, userID, courtID, date, start); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	r := model.Reservation{
		ID:              m.newID(),
		UserID:          userID,
		CourtID:         courtID,
		Date:            date,
		StartTime:       start,
		DurationMinutes: model.SlotDurationMinutes,
		Status:          model.StatusActive,
		CreatedAt:       now,
	}
	if err := m.repo.Insert(ctx, r); err != nil {
		return nil, err
	}
	log.Printf("reservation %s created: user=%s court=%s slot=%s %s", r.ID, userID, courtID, date, start)

	m.publish(ctx, model.NewReservationEvent(model.EventReservationCreated, r, now))

	r = m.withCourt(ctx, r)
	return &r, nil
}

// CancelReservation は正本から予約を取得し、検証に通ればキャンセルします
func (m *Manager) CancelReservation(ctx context.Context, userID, reservationID string) error {
	if userID == "" {
		return apperror.Unauthenticated()
	}
	r, err := m.repo.ByID(ctx, reservationID)
	if err != nil {
		return remoteError(fmt.Errorf("failed to get reservation %s: %w", reservationID, err))
	}
	if r == nil {
		return apperror.NotFound("reservation", reservationID)
	}
	if err := m.validator.ValidateCancel(userID, *r); err != nil {
		return err
	}

	if err := m.repo.UpdateStatus(ctx, reservationID, model.StatusCancelled); err != nil {
		return err
	}
	log.Printf("reservation %s cancelled by %s", reservationID, userID)

	r.Status = model.StatusCancelled
	m.publish(ctx, model.NewReservationEvent(model.EventReservationCancelled, *r, m.clock.Now()))
	return nil
}

func (m *Manager) currentUser(ctx context.Context) (string, error) {
	userID, ok := m.users.CurrentUserID(ctx)
	if !ok {
		return "", apperror.Unauthenticated()
	}
	return userID, nil
}

// CreateForCurrentUser は現在のユーザーとして予約を作成します
func (m *Manager) CreateForCurrentUser(ctx context.Context, courtID string, date model.Date, start model.TimeOfDay) (*model.Reservation, error) {
	userID, err := m.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return m.CreateReservation(ctx, userID, courtID, date, start)
}

// CancelForCurrentUser は現在のユーザーとして予約をキャンセルします
func (m *Manager) CancelForCurrentUser(ctx context.Context, reservationID string) error {
	userID, err := m.currentUser(ctx)
	if err != nil {
		return err
	}
	return m.CancelReservation(ctx, userID, reservationID)
}

// GetReservation はキャッシュ優先で予約を取得し、表示用ステータスとコート情報を付与します
func (m *Manager) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, remoteError(fmt.Errorf("failed to get reservation %s: %w", id, err))
	}
	if r == nil {
		return nil, apperror.NotFound("reservation", id)
	}
	res := m.withCourt(ctx, *r)
	res.Status = res.EffectiveStatus(m.clock.Now())
	return &res, nil
}

// GetReservationForCurrentUser は現在のユーザー本人の予約だけを返します
func (m *Manager) GetReservationForCurrentUser(ctx context.Context, id string) (*model.Reservation, error) {
	userID, err := m.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	r, err := m.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperror.Unauthorized()
	}
	return r, nil
}

// ListUserReservations はユーザーの予約を表示用ステータスで絞り込んで返します
func (m *Manager) ListUserReservations(ctx context.Context, userID string, filter model.ReservationFilter) ([]model.Reservation, error) {
	rs, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, remoteError(fmt.Errorf("failed to list reservations of %s: %w", userID, err))
	}
	return m.present(ctx, rs, filter), nil
}

// RefreshUserReservations はユーザーのローカルキャッシュをリモートから再読み込みします
func (m *Manager) RefreshUserReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	rs, err := m.repo.RefreshUser(ctx, userID)
	if err != nil {
		return nil, remoteError(fmt.Errorf("failed to refresh reservations of %s: %w", userID, err))
	}
	return m.present(ctx, rs, model.FilterAll), nil
}

func (m *Manager) present(ctx context.Context, rs []model.Reservation, filter model.ReservationFilter) []model.Reservation {
	now := m.clock.Now()
	courts := m.courtIndex(ctx)

	out := make([]model.Reservation, 0, len(rs))
	for _, r := range rs {
		if !filter.Matches(r, now) {
			continue
		}
		r.Status = r.EffectiveStatus(now)
		if c, ok := courts[r.CourtID]; ok {
			r = r.WithCourt(&c)
		}
		out = append(out, r)
	}
	return out
}

// コート情報は表示用なので、取得に失敗しても予約は返します
func (m *Manager) withCourt(ctx context.Context, r model.Reservation) model.Reservation {
	if m.courts == nil {
		return r
	}
	court, err := m.courts.GetCourtByID(ctx, r.CourtID)
	if err != nil {
		log.Printf("failed to get court %s: %v", r.CourtID, err)
		return r
	}
	if court == nil {
		return r
	}
	return r.WithCourt(court)
}

func (m *Manager) courtIndex(ctx context.Context) map[string]model.Court {
	index := map[string]model.Court{}
	if m.courts == nil {
		return index
	}
	courts, err := m.courts.ListCourts(ctx)
	if err != nil {
		log.Printf("failed to list courts: %v", err)
		return index
	}
	for _, c := range courts {
		index[c.ID] = c
	}
	return index
}

func (m *Manager) publish(ctx context.Context, event model.ReservationEvent) {
	if err := m.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s for reservation %s: %v", event.Type, event.ReservationID, err)
	}
}
