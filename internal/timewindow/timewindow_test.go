package timewindow

import (
	"testing"
	"time"
)

func TestLocalize(t *testing.T) {
	tests := []struct {
		name        string
		instant     time.Time
		offsetHours int
		wantDate    string
		wantHour    int
	}{
		{
			name:        "zero offset is a passthrough",
			instant:     time.Date(2024, 1, 15, 13, 30, 0, 0, time.UTC),
			offsetHours: 0,
			wantDate:    "2024-01-15",
			wantHour:    13,
		},
		{
			name:        "positive offset rolls into next day",
			instant:     time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC),
			offsetHours: 5,
			wantDate:    "2024-01-16",
			wantHour:    3,
		},
		{
			name:        "negative offset rolls into previous day",
			instant:     time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC),
			offsetHours: -4,
			wantDate:    "2024-01-14",
			wantHour:    22,
		},
		{
			name:        "negative offset without day change",
			instant:     time.Date(2024, 1, 15, 18, 45, 0, 0, time.UTC),
			offsetHours: -3,
			wantDate:    "2024-01-15",
			wantHour:    15,
		},
		{
			name:        "extreme eastern offset",
			instant:     time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC),
			offsetHours: 14,
			wantDate:    "2024-07-01",
			wantHour:    2,
		},
		{
			name:        "extreme western offset",
			instant:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			offsetHours: -12,
			wantDate:    "2024-02-29",
			wantHour:    22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, hour := Localize(tt.instant, tt.offsetHours)
			if date != tt.wantDate {
				t.Errorf("Localize() date = %v, want %v", date, tt.wantDate)
			}
			if hour != tt.wantHour {
				t.Errorf("Localize() hour = %v, want %v", hour, tt.wantHour)
			}
		})
	}
}

// TestWindowsPartitionDay verifies the six windows cover [0,24) exactly:
// contiguous, non-overlapping, exhaustive.
func TestWindowsPartitionDay(t *testing.T) {
	windows := Windows()
	if len(windows) != WindowCount {
		t.Fatalf("Windows() returned %d windows, want %d", len(windows), WindowCount)
	}

	for hour := 0; hour < 24; hour++ {
		matches := 0
		for _, w := range windows {
			if w.Contains(hour) {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("hour %d is contained in %d windows, want exactly 1", hour, matches)
		}
	}

	if windows[0].StartHour != 0 {
		t.Errorf("first window starts at %d, want 0", windows[0].StartHour)
	}
	if windows[len(windows)-1].EndHour != 24 {
		t.Errorf("last window ends at %d, want 24", windows[len(windows)-1].EndHour)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].StartHour != windows[i-1].EndHour {
			t.Errorf("window %d starts at %d, previous ends at %d", i, windows[i].StartHour, windows[i-1].EndHour)
		}
	}
}

func TestWindowOf(t *testing.T) {
	tests := []struct {
		hour      int
		wantIndex int
		wantLabel string
	}{
		{0, 0, "00:00-04:00"},
		{3, 0, "00:00-04:00"},
		{4, 1, "04:00-08:00"},
		{11, 2, "08:00-12:00"},
		{12, 3, "12:00-16:00"},
		{19, 4, "16:00-20:00"},
		{23, 5, "20:00-24:00"},
	}

	for _, tt := range tests {
		w := WindowOf(tt.hour)
		if w.Index != tt.wantIndex {
			t.Errorf("WindowOf(%d).Index = %d, want %d", tt.hour, w.Index, tt.wantIndex)
		}
		if w.Label() != tt.wantLabel {
			t.Errorf("WindowOf(%d).Label() = %q, want %q", tt.hour, w.Label(), tt.wantLabel)
		}
	}
}

// TestDayRangeRoundTrip checks the inverse relationship between Localize and
// DayRangeUTC across the full span of real-world UTC offsets: any instant
// localizing to date D must fall inside D's derived UTC range, and any
// instant inside the range must localize back to D.
func TestDayRangeRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 3, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 15, 11, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
	}

	for offset := -12; offset <= 14; offset++ {
		for _, instant := range instants {
			date, _ := Localize(instant, offset)

			start, end, err := DayRangeUTC(date, offset)
			if err != nil {
				t.Fatalf("DayRangeUTC(%q, %d) error: %v", date, offset, err)
			}

			if instant.Before(start) || instant.After(end) {
				t.Errorf("offset %d: instant %v localizes to %q but falls outside derived range [%v, %v]",
					offset, instant, date, start, end)
			}

			// Converse: the range endpoints must localize back to the date.
			for _, boundary := range []time.Time{start, end} {
				gotDate, _ := Localize(boundary, offset)
				if gotDate != date {
					t.Errorf("offset %d: range boundary %v localizes to %q, want %q",
						offset, boundary, gotDate, date)
				}
			}
		}
	}
}

func TestTrailingRangeUTC(t *testing.T) {
	start, end, err := TrailingRangeUTC("2024-01-15", 0, 7)
	if err != nil {
		t.Fatalf("TrailingRangeUTC() error: %v", err)
	}

	wantStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}

	// Trailing range ends just before the target day begins.
	dayStart, _, _ := DayRangeUTC("2024-01-15", 0)
	if !end.Before(dayStart) {
		t.Errorf("trailing end %v overlaps target day start %v", end, dayStart)
	}
}

func TestDayRangeUTCInvalidDate(t *testing.T) {
	if _, _, err := DayRangeUTC("15-01-2024", 0); err == nil {
		t.Error("DayRangeUTC() with malformed date should return an error")
	}
}
