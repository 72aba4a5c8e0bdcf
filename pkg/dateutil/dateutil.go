package dateutil

import "time"

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly strips the clock and location, keeping the calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// DaysInclusive counts calendar days in [start, end]; zero when end precedes start.
func DaysInclusive(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// DaysBetween returns the whole days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// Overlap intersects two inclusive date ranges.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) (start, end time.Time, ok bool) {
	start = latest(DateOnly(aStart), DateOnly(bStart))
	end = earliest(DateOnly(aEnd), DateOnly(bEnd))
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// IsWeekday reports Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Workdays counts Monday-Friday dates in [start, end].
func Workdays(start, end time.Time) int {
	days := DaysInclusive(start, end)
	if days == 0 {
		return 0
	}
	full := days / 7
	count := full * 5
	cursor := DateOnly(start).AddDate(0, 0, full*7)
	for i := 0; i < days%7; i++ {
		if IsWeekday(cursor) {
			count++
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return count
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
