package transform

import "time"

// CalendarTimestamp is a civil date and time of day, treated as UT1.
// Fields are not validated: out-of-range values flow through the Julian Day
// arithmetic and yield a consistent but physically meaningless result
// (month 13 of 2020 is month 1 of 2021).
type CalendarTimestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second float64
}

// TimestampFromTime converts t to a CalendarTimestamp in UTC.
// Nanoseconds are folded into Second.
func TimestampFromTime(t time.Time) CalendarTimestamp {
	t = t.UTC()
	return CalendarTimestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: float64(t.Second()) + float64(t.Nanosecond())/1e9,
	}
}

// JulianDayNumber returns the Julian Day Number at noon of the civil date in ts.
//
// Uses the Fliegel–Van Flandern integer algorithm. Every division must truncate
// toward zero; Go's integer division does exactly that, so (month-14)/12 is -1
// for January and February and 0 otherwise.
func JulianDayNumber(ts CalendarTimestamp) int {
	y, m, d := ts.Year, ts.Month, ts.Day
	a := (m - 14) / 12

	return d - 32075 +
		1461*(y+4800+a)/4 +
		367*(m-2-a*12)/12 -
		3*((y+4900+a)/100)/4
}

// JulianDate converts a calendar timestamp to a Julian Date.
// The day number is re-anchored to the preceding midnight (JDN - 0.5) before
// the time of day is added as a fraction of 86400 seconds.
func JulianDate(ts CalendarTimestamp) float64 {
	midnight := float64(JulianDayNumber(ts)) - 0.5
	dayFrac := (ts.Second + 60*(float64(ts.Minute)+60*float64(ts.Hour))) / secondsPerDay

	return midnight + dayFrac
}
