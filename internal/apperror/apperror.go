// Package apperror は予約エンジン全体で使うエラーの分類を定義します
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの大分類です
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Rule は Validation / Authorization エラーの詳細な理由です
type Rule string

const (
	RuleNone                          Rule = ""
	RuleWeekendReservation            Rule = "weekend_reservation"
	RulePastTime                      Rule = "past_time"
	RuleAdvanceBookingLimit           Rule = "advance_booking_limit"
	RuleInvalidTimeSlot               Rule = "invalid_time_slot"
	RuleMaxReservationsExceeded       Rule = "max_reservations_exceeded"
	RuleMaxActiveReservationsExceeded Rule = "max_active_reservations_exceeded"
	RuleSlotNotAvailable              Rule = "slot_not_available"
	RuleInvalidCourt                  Rule = "invalid_court"
	RulePastTimeCancellation          Rule = "past_time_cancellation"
	RuleMustCancel2HoursBefore        Rule = "must_cancel_2_hours_before"
	RuleOnlyActiveCancellable         Rule = "only_active_cancellable"
	RuleUnauthorized                  Rule = "unauthorized"
	RuleUnauthenticated               Rule = "unauthenticated"
)

// Error はエンジンが返す分類済みのエラーです
type Error struct {
	Kind     Kind
	Rule     Rule
	Limit    int
	Resource string
	ID       string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は Kind と Rule が一致すれば同じエラーとみなします
// Rule が空のターゲットは Kind だけで比較します
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Rule == RuleNone || t.Rule == e.Rule
}

func defaultMessage(e *Error) string {
	switch e.Rule {
	case RuleWeekendReservation:
		return "reservations are not allowed on weekends"
	case RulePastTime:
		return "cannot reserve a time in the past"
	case RuleAdvanceBookingLimit:
		return fmt.Sprintf("reservations can be made at most %d business days in advance", e.Limit)
	case RuleInvalidTimeSlot:
		return "start time is not a valid slot"
	case RuleMaxReservationsExceeded:
		return fmt.Sprintf("maximum of %d reservation(s) per day exceeded", e.Limit)
	case RuleMaxActiveReservationsExceeded:
		return fmt.Sprintf("maximum of %d active reservations exceeded", e.Limit)
	case RuleSlotNotAvailable:
		return "slot is not available"
	case RuleInvalidCourt:
		return "invalid court"
	case RulePastTimeCancellation:
		return "cannot cancel a reservation in the past"
	case RuleMustCancel2HoursBefore:
		return "reservations must be cancelled at least 2 hours before start"
	case RuleOnlyActiveCancellable:
		return "only active reservations can be cancelled"
	case RuleUnauthorized:
		return "not allowed to access this reservation"
	case RuleUnauthenticated:
		return "user is not authenticated"
	}
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	case KindNetwork:
		return "remote store unavailable"
	default:
		return "unknown error"
	}
}

// Validation はルール違反のエラーを作成します
func Validation(rule Rule) *Error {
	return &Error{Kind: KindValidation, Rule: rule}
}

// ValidationWithLimit は上限値つきのルール違反を作成します
func ValidationWithLimit(rule Rule, limit int) *Error {
	return &Error{Kind: KindValidation, Rule: rule, Limit: limit}
}

func Unauthorized() *Error {
	return &Error{Kind: KindAuthorization, Rule: RuleUnauthorized}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindAuthorization, Rule: RuleUnauthenticated}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

// Network はリモートストアへの到達失敗を包みます
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// Unknown は想定外の失敗を包みます。既に分類済みのエラーはそのまま返します
func Unknown(err error) error {
	if IsClassified(err) {
		return err
	}
	return &Error{Kind: KindUnknown, Err: err}
}

// IsClassified は err が *Error を含むかどうかを返します
// KindUnknown として分類済みのエラーも true です
func IsClassified(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}

// Sentinel values for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrNetwork       = &Error{Kind: KindNetwork}
)

// KindOf はエラーの分類を返します。分類されていないエラーは KindUnknown です
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// RuleOf はエラーのルールを返します
func RuleOf(err error) Rule {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Rule
	}
	return RuleNone
}

// HasRule は err が指定ルールの違反かどうかを返します
func HasRule(err error, rule Rule) bool {
	return RuleOf(err) == rule && rule != RuleNone
}

// HTTPStatus はエラーに対応する HTTP ステータスコードを返します
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		if RuleOf(err) == RuleSlotNotAvailable {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case KindAuthorization:
		if RuleOf(err) == RuleUnauthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
