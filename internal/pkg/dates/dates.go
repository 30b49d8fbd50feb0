package dates

import (
	"math"
	"time"
)

// BusinessDays counts the weekdays (Mon-Fri) in the inclusive range
// [start, end]. Returns 0 when end is before start.
func BusinessDays(start, end time.Time) int {
	start = truncate(start)
	end = truncate(end)
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// DaysUntil returns the number of days from now until start, rounded up.
// Negative when start is in the past.
func DaysUntil(start, now time.Time) int {
	return int(math.Ceil(start.Sub(now).Hours() / 24))
}

// YearBounds returns [Jan 1 of year, Jan 1 of year+1) in UTC, for
// half-open range queries over a calendar year.
func YearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
