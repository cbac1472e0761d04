// Package schedule は施設の固定スケジュール(予約枠と予約可能日)を扱います
package schedule

import (
	"time"

	"github.com/uma-arai/sbcntr-court/internal/model"
)

// DisplayMarginMinutes は表示用フィルタで現在時刻に加算する余裕時間です
const DisplayMarginMinutes = 30

const minutesPerDay = 24 * 60

type session struct {
	start, end model.TimeOfDay
}

// 午後の部は 20:30 開始の枠が 22:00 に終わるため、名目上の終了時刻 21:00 を超えます
var sessions = []session{
	{start: model.NewTimeOfDay(10, 0), end: model.NewTimeOfDay(14, 30)},
	{start: model.NewTimeOfDay(16, 0), end: model.NewTimeOfDay(21, 0)},
}

// GenerateDailySlots は1日分の予約枠を開始時刻順に返します
// 各部の終了時刻より前に始まる枠を90分刻みで生成します
func GenerateDailySlots() []model.TimeSlot {
	var slots []model.TimeSlot
	for _, s := range sessions {
		for start := s.start; start < s.end; start = start.AddMinutes(model.SlotDurationMinutes) {
			slots = append(slots, model.TimeSlot{
				StartTime:   start,
				EndTime:     start.AddMinutes(model.SlotDurationMinutes),
				IsAvailable: true,
			})
		}
	}
	return slots
}

// SlotStarts は予約枠の開始時刻の一覧を返します
func SlotStarts() []model.TimeOfDay {
	slots := GenerateDailySlots()
	starts := make([]model.TimeOfDay, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.StartTime)
	}
	return starts
}

// IsSlotStart は t が予約枠の開始時刻と完全に一致するかを返します
func IsSlotStart(t model.TimeOfDay) bool {
	for _, start := range SlotStarts() {
		if start == t {
			return true
		}
	}
	return false
}

// displayCutoff は now に表示用マージンを足した時刻を返します
// 日付をまたぐ場合は ok=false です
func displayCutoff(now time.Time) (model.TimeOfDay, bool) {
	withMargin := model.TimeOfDayOf(now).AddMinutes(DisplayMarginMinutes)
	if withMargin.Minutes() >= minutesPerDay {
		return 0, false
	}
	return withMargin, true
}

// FilterForDisplay は当日の枠から、開始まで30分未満のものを取り除きます
// 当日以外の日付は slots をそのまま返します
func FilterForDisplay(slots []model.TimeSlot, date model.Date, now time.Time) []model.TimeSlot {
	if !date.Equal(model.DateOf(now)) {
		return slots
	}
	cutoff, ok := displayCutoff(now)
	if !ok {
		return []model.TimeSlot{}
	}
	filtered := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.StartTime > cutoff {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// HasBookableSlotToday は今日まだ表示できる枠が残っているかを返します
func HasBookableSlotToday(now time.Time) bool {
	return len(FilterForDisplay(GenerateDailySlots(), model.DateOf(now), now)) > 0
}
