package models

import "time"

// WindowStats holds the mean speed for one time-of-day window. AvgSpeed is
// nil when the window has no samples, which is distinct from an average of
// zero knots.
type WindowStats struct {
	Window     string   `json:"window"`
	AvgSpeed   *float64 `json:"avg_speed"`
	DataPoints int      `json:"data_points"`
}

// DailyStats aggregates one team's samples for one local calendar day.
type DailyStats struct {
	Date       string        `json:"date"`
	Windows    []WindowStats `json:"windows"`
	OverallAvg float64       `json:"overall_avg"`
	DataPoints int           `json:"data_points"`
}

// WindowComparison compares one window's current-day average against the
// trailing seven-day baseline. All four values are nullable: a missing side
// leaves the derived fields nil rather than fabricating zeros.
type WindowComparison struct {
	Window        string   `json:"window"`
	Current       *float64 `json:"current"`
	SevenDayAvg   *float64 `json:"seven_day_avg"`
	Diff          *float64 `json:"diff"`
	PercentChange *float64 `json:"percent_change"`
}

// TeamComparison is one row of the table analytics response.
type TeamComparison struct {
	TeamName string             `json:"team_name"`
	Windows  []WindowComparison `json:"windows"`
}

// BoatFrame is one boat's position within a playback frame, with the speed
// delta versus that boat's immediately preceding observation.
type BoatFrame struct {
	TeamName         string   `json:"team_name"`
	LatitudeDecimal  float64  `json:"latitude_decimal"`
	LongitudeDecimal float64  `json:"longitude_decimal"`
	SpeedKnots       float64  `json:"speed_knots"`
	CourseDegrees    int      `json:"course_degrees"`
	LastUpdateLabel  string   `json:"last_update"`
	SpeedDiff        *float64 `json:"speed_diff"`
	PercentChange    *float64 `json:"percent_change"`
}

// MapFrame is one retained playback instant with the boats visible at it.
type MapFrame struct {
	Timestamp time.Time   `json:"timestamp"`
	Boats     []BoatFrame `json:"boats"`
}
