package itinerary

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WeeklyHours is the weekly opening-hours description returned by the places
// API: one free-form line per weekday, each prefixed by the localized
// weekday name.
type WeeklyHours struct {
	WeekdayText []string `json:"weekday_text"`
}

// OpenState is the outcome of an opening-hours lookup.
type OpenState int

const (
	OpenUnknown OpenState = iota
	OpenLikely
	ClosedLikely
)

// String implements fmt.Stringer.
func (s OpenState) String() string {
	switch s {
	case OpenLikely:
		return "open"
	case ClosedLikely:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText lets OpenState appear as a JSON string.
func (s OpenState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HoursMatcher picks the line for a weekday and judges a visit time against
// it. Swap implementations to support other locales or feed formats.
type HoursMatcher interface {
	LineFor(hours WeeklyHours, day time.Weekday) (string, bool)
	Evaluate(line string, visit TimeOfDay) OpenState
}

// HoursFormat is the regex-based HoursMatcher. Weekdays is indexed by
// time.Weekday (Sunday first).
type HoursFormat struct {
	Weekdays [7]string
	Closed   []string
	AllDay   []string
}

// TraditionalChinese matches zh-TW place listings such as
// "週一: 11:00–14:30, 17:00–21:00".
var TraditionalChinese = HoursFormat{
	Weekdays: [7]string{"週日", "週一", "週二", "週三", "週四", "週五", "週六"},
	Closed:   []string{"休息"},
	AllDay:   []string{"24 小時"},
}

// English matches listings such as "Monday: 9:00 AM – 5:00 PM" or
// "Monday: 9:00 – 17:00".
var English = HoursFormat{
	Weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	Closed:   []string{"Closed"},
	AllDay:   []string{"Open 24 hours"},
}

// rangePattern matches "H:MM – H:MM" with optional AM/PM markers. Places
// feeds separate the marker with a narrow no-break or thin space.
var rangePattern = regexp.MustCompile(
	`(\d{1,2}):(\d{2})[\s\x{00A0}\x{2009}\x{202F}]*((?i:AM|PM))?[\s\x{00A0}\x{2009}\x{202F}]*[–-]` +
		`[\s\x{00A0}\x{2009}\x{202F}]*(\d{1,2}):(\d{2})[\s\x{00A0}\x{2009}\x{202F}]*((?i:AM|PM))?`)

// LineFor returns the first line prefixed by the weekday label.
func (f HoursFormat) LineFor(hours WeeklyHours, day time.Weekday) (string, bool) {
	if day < time.Sunday || day > time.Saturday {
		return "", false
	}
	prefix := f.Weekdays[day]
	for _, line := range hours.WeekdayText {
		if strings.HasPrefix(line, prefix) {
			return line, true
		}
	}
	return "", false
}

// Evaluate checks closed and all-day markers first, then every time range on
// the line. Range bounds are inclusive.
func (f HoursFormat) Evaluate(line string, visit TimeOfDay) OpenState {
	for _, m := range f.Closed {
		if strings.Contains(line, m) {
			return ClosedLikely
		}
	}
	for _, m := range f.AllDay {
		if strings.Contains(line, m) {
			return OpenLikely
		}
	}

	ranges := rangePattern.FindAllStringSubmatch(line, -1)
	if len(ranges) == 0 {
		return OpenUnknown
	}
	v := int(visit)
	for _, r := range ranges {
		// "5:00 – 9:00 PM": the start shares the end's marker.
		startMeridiem := r[3]
		if startMeridiem == "" {
			startMeridiem = r[6]
		}
		start := clockMinutes(r[1], r[2], startMeridiem)
		end := clockMinutes(r[4], r[5], r[6])
		if start <= v && v <= end {
			return OpenLikely
		}
	}
	return ClosedLikely
}

// clockMinutes converts an hour and minute to minutes since midnight. An
// empty meridiem means a 24-hour clock.
func clockMinutes(h, m, meridiem string) int {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	switch strings.ToUpper(meridiem) {
	case "AM":
		if hh == 12 {
			hh = 0
		}
	case "PM":
		if hh < 12 {
			hh += 12
		}
	}
	return hh*60 + mm
}

// IsLikelyOpen reports whether a place is likely open at visitTime on the
// given weekday. A nil matcher uses TraditionalChinese.
func IsLikelyOpen(hours WeeklyHours, day time.Weekday, visitTime string, matcher HoursMatcher) OpenState {
	visit, ok := ParseTime(visitTime)
	if !ok {
		return OpenUnknown
	}
	if matcher == nil {
		matcher = TraditionalChinese
	}
	line, ok := matcher.LineFor(hours, day)
	if !ok {
		return OpenUnknown
	}
	return matcher.Evaluate(line, visit)
}
