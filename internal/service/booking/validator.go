package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/schedule"
)

const (
	// MaxReservationsPerDay は1ユーザーが同じ日に持てる active な予約数です
	MaxReservationsPerDay = 1
	// MaxActiveReservations は1ユーザーが同時に持てる active な予約数です
	MaxActiveReservations = 2
)

// Validator は予約の作成・キャンセルの可否を判定します。副作用はありません
type Validator struct {
	lookup ReservationLookup
	clock  schedule.Clock
}

func NewValidator(lookup ReservationLookup, clock schedule.Clock) *Validator {
	return &Validator{lookup: lookup, clock: clock}
}

// ValidateCreate は予約作成のルールを順に検証し、最初に違反したルールを返します
//  1. コートIDが空でない
//  2. 土日でない
//  3. 過去の日時でない
//  4. 7営業日以内
//  5. 開始時刻が枠の開始時刻と一致する
//  6. 同じ日に active な予約が無い
//  7. active な予約が2件未満
//  8. 枠が空いている
func (v *Validator) ValidateCreate(ctx context.Context, userID, courtID string, date model.Date, start model.TimeOfDay) error {
	if strings.TrimSpace(courtID) == "" {
		return apperror.Validation(apperror.RuleInvalidCourt)
	}
	if !schedule.IsBusinessDay(date) {
		return apperror.Validation(apperror.RuleWeekendReservation)
	}

	now := v.clock.Now()
	today := model.DateOf(now)
	if date.Before(today) {
		return apperror.Validation(apperror.RulePastTime)
	}
	if date.Equal(today) && start <= model.TimeOfDayOf(now) {
		return apperror.Validation(apperror.RulePastTime)
	}
	if !schedule.IsDateWithinBookingWindow(today, date) {
		return apperror.ValidationWithLimit(apperror.RuleAdvanceBookingLimit, schedule.MaxBookingDays)
	}
	if !schedule.IsSlotStart(start) {
		return apperror.Validation(apperror.RuleInvalidTimeSlot)
	}

	active, err := v.lookup.ActiveByUser(ctx, userID)
	if err != nil {
		return remoteError(fmt.Errorf("failed to get active reservations of %s: %w", userID, err))
	}
	sameDay := 0
	for _, r := range active {
		if r.Date.Equal(date) {
			sameDay++
		}
	}
	if sameDay >= MaxReservationsPerDay {
		return apperror.ValidationWithLimit(apperror.RuleMaxReservationsExceeded, MaxReservationsPerDay)
	}
	if len(active) >= MaxActiveReservations {
		return apperror.ValidationWithLimit(apperror.RuleMaxActiveReservationsExceeded, MaxActiveReservations)
	}

	onSlot, err := v.lookup.ActiveByCourtAndDate(ctx, courtID, date)
	if err != nil {
		return remoteError(fmt.Errorf("failed to get reservations of %s on %s: %w", courtID, date, err))
	}
	for _, r := range onSlot {
		if r.StartTime == start {
			return apperror.Validation(apperror.RuleSlotNotAvailable)
		}
	}

	return nil
}

// ValidateCancel は予約キャンセルのルールを検証します
// 翌日以降の予約は時間の制約なくキャンセルできます
func (v *Validator) ValidateCancel(userID string, r model.Reservation) error {
	if r.UserID != userID {
		return apperror.Unauthorized()
	}
	if r.Status != model.StatusActive {
		return apperror.Validation(apperror.RuleOnlyActiveCancellable)
	}

	now := v.clock.Now()
	today := model.DateOf(now)
	switch {
	case r.Date.Before(today):
		return apperror.Validation(apperror.RulePastTimeCancellation)
	case r.Date.Equal(today):
		minutesUntilStart := r.StartTime.Minutes() - model.TimeOfDayOf(now).Minutes()
		if minutesUntilStart < model.CancellationCutoffMinutes {
			return apperror.Validation(apperror.RuleMustCancel2HoursBefore)
		}
	}
	return nil
}
