package schedule

import (
	"time"

	"github.com/uma-arai/sbcntr-court/internal/model"
)

// MaxBookingDays は予約可能な営業日数です
const MaxBookingDays = 7

// IsBusinessDay は土日以外なら true を返します
func IsBusinessDay(d model.Date) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// BookableDates は予約画面に表示する営業日を7日分返します
// 今日の枠がもう表示できない場合は翌日から数えます
func BookableDates(now time.Time) []model.Date {
	current := model.DateOf(now)
	if !HasBookableSlotToday(now) {
		current = current.AddDays(1)
	}

	dates := make([]model.Date, 0, MaxBookingDays)
	for len(dates) < MaxBookingDays {
		if IsBusinessDay(current) {
			dates = append(dates, current)
		}
		current = current.AddDays(1)
	}
	return dates
}

// IsDateWithinBookingWindow は target が today から7営業日以内かどうかを返します
// target が today 以前なら常に true です。過去日の判定は別のルールで行います
func IsDateWithinBookingWindow(today, target model.Date) bool {
	if !target.After(today) {
		return true
	}

	current := today
	for advanced := 0; advanced < MaxBookingDays; {
		current = current.AddDays(1)
		if IsBusinessDay(current) {
			advanced++
			if !current.Before(target) {
				return true
			}
		}
	}
	return false
}
