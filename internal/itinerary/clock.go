// Package itinerary holds the pure scheduling helpers used to judge whether a
// day's itinerary is realistic: clock parsing, opening-hours matching,
// great-circle distance, travel-time estimation and next-stop feasibility.
//
// Nothing in this package performs I/O or reads the wall clock. Every
// function is safe for concurrent use.
package itinerary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in a calendar day.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// Valid values are 0 through 1439.
type TimeOfDay int

var clockPattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)

// ParseTime parses a zero-padded 24-hour "HH:MM" string. Surrounding
// whitespace is ignored. Malformed or out-of-range input reports false.
func ParseTime(text string) (TimeOfDay, bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return 0, false
	}
	return TimeOfDay(h*60 + mm), true
}

// FormatTime renders minutes as "HH:MM". Values outside a single day wrap
// around midnight.
func FormatTime(minutes int) string {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// String implements fmt.Stringer.
func (t TimeOfDay) String() string {
	return FormatTime(int(t))
}

// Minutes returns t as a plain minute count.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// MarshalJSON encodes t as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	v, ok := ParseTime(s)
	if !ok {
		return fmt.Errorf("time of day %q must be HH:MM", s)
	}
	*t = v
	return nil
}

// ParseOptionalTime treats blank input as "not set" and anything else as a
// clock that must parse. It is the ingestion gate for stored stop times.
func ParseOptionalTime(text string) (*TimeOfDay, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "--:--" {
		return nil, nil
	}
	t, ok := ParseTime(text)
	if !ok {
		return nil, fmt.Errorf("time %q must be HH:MM", text)
	}
	return &t, nil
}
