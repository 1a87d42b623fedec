package itinerary

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Stop is the scheduling view of a trip stop. Nil Location, Start or End
// mean the value was never provided.
type Stop struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location *GeoPoint  `json:"location,omitempty"`
	Start    *TimeOfDay `json:"startTime,omitempty"`
	End      *TimeOfDay `json:"endTime,omitempty"`
}

// Verdict is the result of analysing the leg from one stop to the next.
// Nil numeric fields mean the value could not be determined.
type Verdict struct {
	NextStop       *Stop    `json:"nextStop"`
	Mode           Mode     `json:"mode"`
	DistanceMeters *float64 `json:"distanceMeters"`
	TravelMinutes  *int     `json:"travelMinutes"`
	Late           *bool    `json:"late"`
	Hint           string   `json:"hint"`
}

// Outcome summarises the verdict as one of "no_next", "no_coordinates",
// "unknown", "late" or "on_time".
func (v Verdict) Outcome() string {
	switch {
	case v.NextStop == nil:
		return "no_next"
	case v.DistanceMeters == nil:
		return "no_coordinates"
	case v.Late == nil:
		return "unknown"
	case *v.Late:
		return "late"
	default:
		return "on_time"
	}
}

// missingTime sorts stops without a clock after every stop that has one.
const missingTime = math.MaxInt

func sortKey(t *TimeOfDay) int {
	if t == nil {
		return missingTime
	}
	return int(*t)
}

// SortStops returns a copy of stops in chronological order: start time,
// then end time, then name. Stops without times go last.
func SortStops(stops []Stop) []Stop {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b Stop) int {
		if c := cmp.Compare(sortKey(a.Start), sortKey(b.Start)); c != 0 {
			return c
		}
		if c := cmp.Compare(sortKey(a.End), sortKey(b.End)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

const hintNoNext = "這是當天最後一站或找不到此行程點，無法計算到下一站的交通。"

var modeLabels = map[Mode]string{
	Walk:    "步行",
	Transit: "搭乘大眾運輸",
	Drive:   "開車",
}

// Analyze decides whether the traveller can get from targetID to the next
// stop of the day in time. It never fails: unexpected faults come back as a
// verdict whose hint explains what went wrong.
func Analyze(stops []Stop, targetID string, mode Mode) (v Verdict) {
	if _, ok := modeProfiles[mode]; !ok {
		mode = Drive
	}
	defer func() {
		if r := recover(); r != nil {
			v = Verdict{Mode: mode, Hint: fmt.Sprintf("無法計算到下一站的交通：%v", r)}
		}
	}()
	return analyzeDay(stops, targetID, mode)
}

// analyzeDay is swapped in tests to exercise fault recovery.
var analyzeDay = analyze

func analyze(stops []Stop, targetID string, mode Mode) Verdict {
	ordered := SortStops(stops)
	idx := slices.IndexFunc(ordered, func(s Stop) bool { return s.ID == targetID })
	if idx < 0 || idx == len(ordered)-1 {
		return Verdict{Mode: mode, Hint: hintNoNext}
	}

	cur := ordered[idx]
	next := ordered[idx+1]
	v := Verdict{NextStop: &next, Mode: mode}

	if cur.Location == nil || next.Location == nil {
		v.Hint = fmt.Sprintf("目前這站或下一站「%s」缺少座標，無法估算交通時間。", next.Name)
		return v
	}

	meters := DistanceMeters(*cur.Location, *next.Location)
	minutes := EstimateTravelMinutes(meters, mode)
	v.DistanceMeters = &meters
	v.TravelMinutes = &minutes
	leg := fmt.Sprintf("到下一站「%s」約 %.1f 公里，%s約 %d 分鐘。", next.Name, meters/1000, modeLabels[mode], minutes)

	depart := cur.End
	if depart == nil {
		depart = cur.Start
	}
	due := next.Start
	if depart == nil || due == nil {
		v.Hint = leg + "缺少時間資訊，無法判斷是否會遲到。"
		return v
	}

	arrival := int(*depart) + minutes
	late := arrival > int(*due)
	v.Late = &late

	if late {
		v.Hint = fmt.Sprintf("%s可能會遲到：%s 出發預計 %s 抵達，但下一站預定 %s 開始。",
			leg, *depart, FormatTime(arrival), *due)
	} else {
		v.Hint = fmt.Sprintf("%s時間安排看起來可行：%s 出發預計 %s 抵達，下一站預定 %s 開始。",
			leg, *depart, FormatTime(arrival), *due)
	}
	return v
}
