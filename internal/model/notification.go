package model

import (
	"fmt"
	"time"
)

// NotificationType は通知の種類を表します
type NotificationType string

const (
	// NotificationTypeReservationCreated は予約完了の通知を表します
	NotificationTypeReservationCreated NotificationType = "reservation_created"
	// NotificationTypeReservationCancelled は予約キャンセルの通知を表します
	NotificationTypeReservationCancelled NotificationType = "reservation_cancelled"
	// NotificationTypeCommon は共通の通知を表します
	NotificationTypeCommon NotificationType = "common"
)

// ReservationEventType は予約のライフサイクルイベントの種類です
type ReservationEventType string

const (
	EventReservationCreated   ReservationEventType = "reservation.created"
	EventReservationCancelled ReservationEventType = "reservation.cancelled"
)

// ReservationEvent は予約の作成・キャンセル時に発行されるイベントです
type ReservationEvent struct {
	Type          ReservationEventType `json:"type"`
	ReservationID string               `json:"reservation_id"`
	UserID        string               `json:"user_id"`
	CourtID       string               `json:"court_id"`
	Date          Date                 `json:"date"`
	StartTime     TimeOfDay            `json:"start_time"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewReservationEvent は予約からイベントを作成します
func NewReservationEvent(t ReservationEventType, r Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          t,
		ReservationID: r.ID,
		UserID:        r.UserID,
		CourtID:       r.CourtID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		OccurredAt:    at,
	}
}

// NotificationRecord は通知のドメインモデルです
// データベースに永続化される通知レコードと一致しています
type NotificationRecord struct {
	ID            int              `json:"id" db:"id"`
	ReservationID string           `json:"reservation_id,omitempty" db:"reservation_id"`
	UserID        string           `json:"user_id" db:"user_id"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	IsRead        bool             `json:"is_read" db:"is_read"`
	Type          NotificationType `json:"type" db:"type"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// ToNotificationRecord はイベントを通知レコードに変換します
// courtNameMap はコートIDから表示名への対応です
func (e ReservationEvent) ToNotificationRecord(courtNameMap map[string]string) (*NotificationRecord, error) {
	if e.UserID == "" {
		return nil, fmt.Errorf("reservation event %s has no user_id", e.ReservationID)
	}

	var title, verb string
	var notificationType NotificationType
	switch e.Type {
	case EventReservationCreated:
		title, verb = "Reserva confirmada", "confirmada"
		notificationType = NotificationTypeReservationCreated
	case EventReservationCancelled:
		title, verb = "Reserva cancelada", "cancelada"
		notificationType = NotificationTypeReservationCancelled
	default:
		return &NotificationRecord{
			UserID:    e.UserID,
			Title:     "Nueva notificación",
			Message:   "Tienes una nueva notificación.",
			Type:      NotificationTypeCommon,
			CreatedAt: e.OccurredAt,
			UpdatedAt: e.OccurredAt,
		}, nil
	}

	courtName, ok := courtNameMap[e.CourtID]
	if !ok {
		return nil, fmt.Errorf("court_id %s not found in courtNameMap", e.CourtID)
	}

	message := fmt.Sprintf(`Tu reserva ha sido %s.
Pista: %s
Fecha: %s %s-%s`, verb, courtName, e.Date, e.StartTime, e.StartTime.AddMinutes(SlotDurationMinutes))

	return &NotificationRecord{
		ReservationID: e.ReservationID,
		UserID:        e.UserID,
		Title:         title,
		Message:       message,
		IsRead:        false,
		Type:          notificationType,
		CreatedAt:     e.OccurredAt,
		UpdatedAt:     e.OccurredAt,
	}, nil
}
