package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sample represents one boat observation tied to a specific source update.
// The (TeamName, SourceURL, LastUpdateLabel) triple is the logical identity
// of a position report; NULL decimal coordinates are represented as pointers
// so "could not parse" stays distinct from 0.
type Sample struct {
	ID               int64     `json:"id" db:"id"`
	TeamName         string    `json:"team_name" db:"team_name"`
	SourceURL        string    `json:"source_url" db:"source_url"`
	LastUpdateLabel  string    `json:"last_update" db:"last_update_label"`
	Latitude         string    `json:"latitude" db:"latitude"`
	Longitude        string    `json:"longitude" db:"longitude"`
	LatitudeDecimal  *float64  `json:"latitude_decimal,omitempty" db:"latitude_decimal"`
	LongitudeDecimal *float64  `json:"longitude_decimal,omitempty" db:"longitude_decimal"`
	SpeedKnots       float64   `json:"speed_knots" db:"speed_knots"`
	CourseDegrees    int       `json:"course_degrees" db:"course_degrees"`
	ScrapedAt        time.Time `json:"scraped_at" db:"scraped_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// RawPositionRow represents one table row as extracted from a tracking page,
// all fields still in their published text form.
type RawPositionRow struct {
	TeamName   string
	LastUpdate string
	Latitude   string
	Longitude  string
	Speed      string
	Course     string
}

// degreesMinutesRe matches coordinates like "49° 33.180' N" or "049 33.18 W".
var degreesMinutesRe = regexp.MustCompile(`(\d{1,3})\s*°?\s*(\d{1,2}(?:\.\d+)?)\s*'?\s*([NSEW])`)

// numericTokenRe extracts the leading numeric token from free-text fields
// like "2.5 knots" or "2.5kn".
var numericTokenRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ToSample converts a raw table row into a Sample bound to one source and
// scrape instant. Numeric fields are best-effort: unparsable speed or course
// defaults to 0, unparsable coordinates stay nil. Rows missing their identity
// fields are rejected.
func (r *RawPositionRow) ToSample(sourceURL string, scrapedAt time.Time) (*Sample, error) {
	teamName := strings.TrimSpace(r.TeamName)
	if teamName == "" {
		return nil, &ValidationError{
			Field:   "team_name",
			Value:   r.TeamName,
			Message: "row has no team name",
		}
	}

	lastUpdate := strings.TrimSpace(r.LastUpdate)
	if lastUpdate == "" {
		return nil, &ValidationError{
			Field:   "last_update",
			Value:   r.LastUpdate,
			Message: "row has no last-update label",
		}
	}

	return &Sample{
		TeamName:         teamName,
		SourceURL:        sourceURL,
		LastUpdateLabel:  lastUpdate,
		Latitude:         strings.TrimSpace(r.Latitude),
		Longitude:        strings.TrimSpace(r.Longitude),
		LatitudeDecimal:  ParseDegreesMinutes(r.Latitude),
		LongitudeDecimal: ParseDegreesMinutes(r.Longitude),
		SpeedKnots:       parseSpeed(r.Speed),
		CourseDegrees:    parseCourse(r.Course),
		ScrapedAt:        scrapedAt.UTC(),
	}, nil
}

// HasPosition reports whether both decimal coordinates parsed successfully.
func (s *Sample) HasPosition() bool {
	return s.LatitudeDecimal != nil && s.LongitudeDecimal != nil
}

// ParseDegreesMinutes converts a degree-minute coordinate string such as
// "49° 33.180' N" to signed decimal degrees (south and west negative).
// Returns nil when the string does not match the published format.
func ParseDegreesMinutes(raw string) *float64 {
	m := degreesMinutesRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil
	}

	degrees, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil || minutes >= 60 {
		return nil
	}

	decimal := degrees + minutes/60.0
	if m[3] == "S" || m[3] == "W" {
		decimal = -decimal
	}
	return &decimal
}

// parseSpeed extracts a non-negative speed in knots from a free-text field.
// Unparsable or negative values default to 0 so a single bad field never
// fails the row.
func parseSpeed(raw string) float64 {
	token := numericTokenRe.FindString(raw)
	if token == "" {
		return 0
	}
	speed, err := strconv.ParseFloat(token, 64)
	if err != nil || speed < 0 {
		return 0
	}
	return speed
}

// parseCourse extracts an integer heading and normalizes it into [0, 360).
func parseCourse(raw string) int {
	token := numericTokenRe.FindString(raw)
	if token == "" {
		return 0
	}
	course, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return ((int(course) % 360) + 360) % 360
}

// ValidationError represents a data validation error during row conversion.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
