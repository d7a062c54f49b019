package model

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// travelDateLayout is the only accepted wire form of a travel date.
const travelDateLayout = "2006-01-02"

// ParseTravelDate converts a "YYYY-MM-DD" string into a calendar date.
// Timestamps, offsets and any other layout are rejected so that a travel
// date never carries a time of day or a zone.
func ParseTravelDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(travelDateLayout) {
		return civil.Date{}, NewValidationError("travel_date", "expected YYYY-MM-DD")
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, NewValidationError("travel_date", "expected YYYY-MM-DD")
	}
	return d, nil
}

// DateIn returns the calendar date of t as observed in loc.  A nil loc
// means UTC.
func DateIn(t time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}
