package timewindow

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for local calendar dates.
const DateLayout = "2006-01-02"

// WindowCount is the number of fixed-width time-of-day windows per day.
const WindowCount = 6

// hoursPerWindow partitions the day into six 4-hour windows:
// [0,4) [4,8) [8,12) [12,16) [16,20) [20,24).
const hoursPerWindow = 24 / WindowCount

// Window is one half-open time-of-day bucket [StartHour, EndHour).
type Window struct {
	Index     int
	StartHour int
	EndHour   int
}

// Label renders the window as "HH:00-HH:00", e.g. "00:00-04:00".
func (w Window) Label() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.StartHour, w.EndHour)
}

// Contains reports whether a local hour falls inside the window.
func (w Window) Contains(localHour int) bool {
	return localHour >= w.StartHour && localHour < w.EndHour
}

// Windows returns the fixed partition of the day, in order.
func Windows() []Window {
	windows := make([]Window, WindowCount)
	for i := range windows {
		windows[i] = Window{
			Index:     i,
			StartHour: i * hoursPerWindow,
			EndHour:   (i + 1) * hoursPerWindow,
		}
	}
	return windows
}

// WindowOf maps a local hour to its window. Hours outside [0,24) are
// normalized first so callers can pass raw offset arithmetic.
func WindowOf(localHour int) Window {
	h := ((localHour % 24) + 24) % 24
	i := h / hoursPerWindow
	return Window{
		Index:     i,
		StartHour: i * hoursPerWindow,
		EndHour:   (i + 1) * hoursPerWindow,
	}
}

// Localize maps a UTC instant to the viewer-local calendar date and hour
// under a whole-hour UTC offset. The offset is applied as a duration shift,
// not a calendar operation, so dates roll over correctly near midnight.
func Localize(instant time.Time, offsetHours int) (localDate string, localHour int) {
	utc := instant.UTC()
	localHour = ((utc.Hour()+offsetHours)%24 + 24) % 24
	localDate = utc.Add(time.Duration(offsetHours) * time.Hour).Format(DateLayout)
	return localDate, localHour
}

// DayRangeUTC derives the inclusive UTC instant range covering local
// calendar date under the given offset. It is the inverse of Localize:
// every UTC instant whose local date equals date falls inside the range.
func DayRangeUTC(date string, offsetHours int) (start, end time.Time, err error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}

	shift := time.Duration(offsetHours) * time.Hour
	start = day.Add(-shift)
	end = day.Add(24*time.Hour - time.Millisecond).Add(-shift)
	return start, end, nil
}

// TrailingRangeUTC derives the UTC range covering the days local calendar
// days immediately preceding date, i.e. [date-days, date) in local time.
// The returned end is exclusive of date's own range start.
func TrailingRangeUTC(date string, offsetHours, days int) (start, end time.Time, err error) {
	dayStart, _, err := DayRangeUTC(date, offsetHours)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start = dayStart.Add(-time.Duration(days) * 24 * time.Hour)
	end = dayStart.Add(-time.Millisecond)
	return start, end, nil
}

// Today returns the current local calendar date under offsetHours.
func Today(now time.Time, offsetHours int) string {
	date, _ := Localize(now, offsetHours)
	return date
}
