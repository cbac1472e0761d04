package schedule

import (
	"time"

	"github.com/uma-arai/sbcntr-court/internal/model"
)

// Clock は施設のタイムゾーンでの現在時刻を提供します
type Clock interface {
	Now() time.Time
}

// SystemClock はシステム時刻を施設のロケーションに変換して返します
type SystemClock struct {
	Location *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// FixedClock は常に同じ時刻を返します
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// Today は clock の現在日付を返します
func Today(c Clock) model.Date {
	return model.DateOf(c.Now())
}
