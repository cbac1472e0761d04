// Package booking は予約枠の空き状況、予約ルールの検証、予約の作成・キャンセルを扱います
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/schedule"
)

// ReservationLookup は正本ストアに対する読み取りです
// 枠の排他とユーザーの上限判定はこれを通してリモートを参照します
type ReservationLookup interface {
	ActiveByCourtAndDate(ctx context.Context, courtID string, date model.Date) ([]model.Reservation, error)
	ActiveByUser(ctx context.Context, userID string) ([]model.Reservation, error)
}

// remoteError は分類されていないリモートの失敗を Network として扱います
func remoteError(err error) error {
	if apperror.IsClassified(err) {
		return err
	}
	return apperror.Network(err)
}

// AvailabilityResolver はコート・日付ごとの枠の空き状況を計算します
type AvailabilityResolver struct {
	lookup ReservationLookup
	clock  schedule.Clock
}

func NewAvailabilityResolver(lookup ReservationLookup, clock schedule.Clock) *AvailabilityResolver {
	return &AvailabilityResolver{lookup: lookup, clock: clock}
}

// GetAvailableSlots は枠ごとの空き状況を返します
// 土日・過去日・予約可能期間外の日付は空のスライスを返します
// 当日の場合は開始時刻が現在時刻より後の枠だけを返します
func (a *AvailabilityResolver) GetAvailableSlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error) {
	now := a.clock.Now()
	slots, err := a.resolve(ctx, courtID, date, now)
	if err != nil || len(slots) == 0 {
		return slots, err
	}

	if !date.Equal(model.DateOf(now)) {
		return slots, nil
	}
	current := model.TimeOfDayOf(now)
	upcoming := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.StartTime > current {
			upcoming = append(upcoming, s)
		}
	}
	return upcoming, nil
}

// GetDisplaySlots は画面表示用に、当日は開始まで30分以上ある枠だけを返します
func (a *AvailabilityResolver) GetDisplaySlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error) {
	now := a.clock.Now()
	slots, err := a.resolve(ctx, courtID, date, now)
	if err != nil || len(slots) == 0 {
		return slots, err
	}
	return schedule.FilterForDisplay(slots, date, now), nil
}

// BookableDates は予約画面に表示する営業日を返します
func (a *AvailabilityResolver) BookableDates() []model.Date {
	return schedule.BookableDates(a.clock.Now())
}

func (a *AvailabilityResolver) resolve(ctx context.Context, courtID string, date model.Date, now time.Time) ([]model.TimeSlot, error) {
	if strings.TrimSpace(courtID) == "" {
		return nil, apperror.Validation(apperror.RuleInvalidCourt)
	}

	today := model.DateOf(now)
	if !schedule.IsBusinessDay(date) || date.Before(today) || !schedule.IsDateWithinBookingWindow(today, date) {
		return []model.TimeSlot{}, nil
	}

	reserved, err := a.lookup.ActiveByCourtAndDate(ctx, courtID, date)
	if err != nil {
		return nil, remoteError(fmt.Errorf("failed to get reservations of %s on %s: %w", courtID, date, err))
	}
	taken := make(map[model.TimeOfDay]bool, len(reserved))
	for _, r := range reserved {
		taken[r.StartTime] = true
	}

	slots := schedule.GenerateDailySlots()
	for i, s := range slots {
		slots[i] = s.WithAvailability(!taken[s.StartTime])
	}
	return slots, nil
}
