package model

import "time"

// SlotDurationMinutes は施設の固定スロット長です
const SlotDurationMinutes = 90

// CancellationCutoffMinutes は開始時刻の何分前までキャンセルできるかを表します
const CancellationCutoffMinutes = 120

// ReservationStatus は予約のステータスです
type ReservationStatus string

const (
	StatusActive    ReservationStatus = "active"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// ParseReservationStatus は文字列からステータスを復元します
// 未知の値は active として扱います
func ParseReservationStatus(s string) ReservationStatus {
	switch ReservationStatus(s) {
	case StatusCompleted:
		return StatusCompleted
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusActive
	}
}

// Reservation はコートの予約です
// completed は保存されず、EffectiveStatus で読み出し時に導出されます
type Reservation struct {
	ID              string            `json:"id" db:"id"`
	UserID          string            `json:"user_id" db:"user_id"`
	CourtID         string            `json:"court_id" db:"court_id"`
	Date            Date              `json:"date" db:"reservation_date"`
	StartTime       TimeOfDay         `json:"start_time" db:"start_time"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	Status          ReservationStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`

	// 表示用。永続化はしません
	Court *Court `json:"court,omitempty" db:"-"`
}

// EndTime は開始時刻と固定の予約時間から終了時刻を計算します
func (r Reservation) EndTime() TimeOfDay {
	return r.StartTime.AddMinutes(SlotDurationMinutes)
}

// IsActive は保存上のステータスが active かどうかを返します
func (r Reservation) IsActive() bool {
	return r.Status == StatusActive
}

// StartsAt は施設のタイムゾーンでの開始日時を返します
func (r Reservation) StartsAt(loc *time.Location) time.Time {
	return r.StartTime.On(r.Date, loc)
}

// EffectiveStatus は now 時点での表示用ステータスを返します
// 終了時刻を過ぎた active の予約は completed として扱います
func (r Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Status != StatusActive {
		return r.Status
	}
	end := r.StartsAt(now.Location()).Add(SlotDurationMinutes * time.Minute)
	if !now.Before(end) {
		return StatusCompleted
	}
	return StatusActive
}

// CanBeCancelled は now 時点でキャンセル可能かどうかを返します
func (r Reservation) CanBeCancelled(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	today := DateOf(now)
	switch {
	case r.Date.Before(today):
		return false
	case r.Date.After(today):
		return true
	default:
		return r.StartTime.Minutes()-TimeOfDayOf(now).Minutes() >= CancellationCutoffMinutes
	}
}

// WithCourt はコート情報を付与したコピーを返します
func (r Reservation) WithCourt(c *Court) Reservation {
	r.Court = c
	return r
}

// ReservationFilter は予約一覧の絞り込み条件です
type ReservationFilter string

const (
	FilterAll       ReservationFilter = "all"
	FilterActive    ReservationFilter = "active"
	FilterCompleted ReservationFilter = "completed"
	FilterCancelled ReservationFilter = "cancelled"
)

// ParseReservationFilter は未知の値を all として扱います
func ParseReservationFilter(s string) ReservationFilter {
	switch ReservationFilter(s) {
	case FilterActive, FilterCompleted, FilterCancelled:
		return ReservationFilter(s)
	default:
		return FilterAll
	}
}

// Matches は now 時点の表示用ステータスでフィルタに一致するかを判定します
func (f ReservationFilter) Matches(r Reservation, now time.Time) bool {
	if f == FilterAll {
		return true
	}
	return string(r.EffectiveStatus(now)) == string(f)
}
