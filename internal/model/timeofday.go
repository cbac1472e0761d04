package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const timeOfDayLayout = "15:04"

// TimeOfDay は 0:00 からの経過分で表した時刻です
type TimeOfDay int

// NewTimeOfDay は時・分から TimeOfDay を作成します
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf は時刻の時・分部分を取り出します (秒以下は切り捨て)
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// ParseTimeOfDay は "15:04" 形式の文字列を TimeOfDay に変換します
// 分は2桁必須で、秒や余分な文字は受け付けません
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDayOf(t), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Minutes は 0:00 からの経過分を返します
func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) AddMinutes(n int) TimeOfDay {
	return t + TimeOfDay(n)
}

// On は指定日の指定ロケーションにおける時刻を返します
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	default:
		return fmt.Errorf("unexpected type for time of day: %T", src)
	}
}
