package etl

import (
	"time"

	"github.com/BartekS5/lake-etl/pkg/models"
)

// Instant is a play start time broken into calendar fields. Fields are
// computed in the location carried by the source time.
type Instant struct {
	Time  time.Time
	Hour  int32
	Day   int32
	Week  int32
	Month int32
	Year  int32
}

// DeriveTime decomposes t. Week is the ISO-8601 week of the year.
func DeriveTime(t time.Time) Instant {
	_, week := t.ISOWeek()
	return Instant{
		Time:  t,
		Hour:  int32(t.Hour()),
		Day:   int32(t.Day()),
		Week:  int32(week),
		Month: int32(t.Month()),
		Year:  int32(t.Year()),
	}
}

func (i Instant) Millis() int64 {
	return i.Time.UnixMilli()
}

// Date is the calendar day of the instant, formatted YYYY-MM-DD.
func (i Instant) Date() string {
	return i.Time.Format(time.DateOnly)
}

func (i Instant) TimeDim() models.TimeDim {
	return models.TimeDim{
		StartTime: i.Millis(),
		Hour:      i.Hour,
		Day:       i.Day,
		Week:      i.Week,
		Month:     i.Month,
		Year:      i.Year,
	}
}
