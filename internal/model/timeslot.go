package model

// TimeSlot は1日のスケジュール上の予約枠です
type TimeSlot struct {
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

// DurationMinutes は枠の長さ(分)を返します
func (s TimeSlot) DurationMinutes() int {
	return s.EndTime.Minutes() - s.StartTime.Minutes()
}

// WithAvailability は空き状況だけを差し替えたコピーを返します
func (s TimeSlot) WithAvailability(available bool) TimeSlot {
	s.IsAvailable = available
	return s
}
