package itinerary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondermap/wondermap-api/internal/itinerary"
)

func clock(s string) *itinerary.TimeOfDay {
	t, ok := itinerary.ParseTime(s)
	if !ok {
		panic("bad clock " + s)
	}
	return &t
}

// pointX and pointY lie on the same meridian about 18.2 km apart, which is a
// 45 minute drive once the buffer is included.
var (
	pointX = &itinerary.GeoPoint{Lat: 25.000, Lng: 121.5}
	pointY = &itinerary.GeoPoint{Lat: 25.164, Lng: 121.5}
)

func dayWithNextStart(nextStart string) []itinerary.Stop {
	return []itinerary.Stop{
		{ID: "b", Name: "B", Location: pointY, Start: clock(nextStart)},
		{ID: "a", Name: "A", Location: pointX, Start: clock("09:00"), End: clock("10:00")},
	}
}

func TestAnalyze_OnTime(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("11:00"), "a", itinerary.Drive)

	require.NotNil(t, v.NextStop)
	assert.Equal(t, "b", v.NextStop.ID)
	require.NotNil(t, v.TravelMinutes)
	assert.Equal(t, 45, *v.TravelMinutes)
	require.NotNil(t, v.DistanceMeters)
	assert.InDelta(t, 18236, *v.DistanceMeters, 5)
	require.NotNil(t, v.Late)
	assert.False(t, *v.Late)
	assert.Contains(t, v.Hint, "時間安排看起來可行")
	assert.Contains(t, v.Hint, "10:45")
	assert.Contains(t, v.Hint, "18.2 公里")
	assert.Equal(t, "on_time", v.Outcome())
}

func TestAnalyze_Late(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("10:30"), "a", itinerary.Drive)

	require.NotNil(t, v.Late)
	assert.True(t, *v.Late)
	assert.Contains(t, v.Hint, "可能會遲到")
	assert.Contains(t, v.Hint, "10:00 出發")
	assert.Contains(t, v.Hint, "10:45 抵達")
	assert.Contains(t, v.Hint, "10:30 開始")
	assert.Equal(t, "late", v.Outcome())
}

func TestAnalyze_ArrivalExactlyOnTimeIsNotLate(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("10:45"), "a", itinerary.Drive)
	require.NotNil(t, v.Late)
	assert.False(t, *v.Late)
}

func TestAnalyze_DepartsFromStartWhenNoEnd(t *testing.T) {
	stops := []itinerary.Stop{
		{ID: "a", Name: "A", Location: pointX, Start: clock("10:00")},
		{ID: "b", Name: "B", Location: pointY, Start: clock("10:40")},
	}
	v := itinerary.Analyze(stops, "a", itinerary.Drive)
	require.NotNil(t, v.Late)
	assert.True(t, *v.Late)
}

func TestAnalyze_LastStopHasNoSuccessor(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("11:00"), "b", itinerary.Drive)
	assert.Nil(t, v.NextStop)
	assert.Nil(t, v.DistanceMeters)
	assert.Nil(t, v.TravelMinutes)
	assert.Nil(t, v.Late)
	assert.Contains(t, v.Hint, "最後一站")
	assert.Equal(t, "no_next", v.Outcome())
}

func TestAnalyze_UnknownTarget(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("11:00"), "ghost", itinerary.Drive)
	assert.Nil(t, v.NextStop)
	assert.Nil(t, v.TravelMinutes)
}

func TestAnalyze_EmptyDay(t *testing.T) {
	v := itinerary.Analyze(nil, "a", itinerary.Drive)
	assert.Nil(t, v.NextStop)
}

func TestAnalyze_MissingCoordinates(t *testing.T) {
	stops := []itinerary.Stop{
		{ID: "a", Name: "A", Location: pointX, Start: clock("09:00")},
		{ID: "b", Name: "B", Start: clock("11:00")},
	}
	v := itinerary.Analyze(stops, "a", itinerary.Drive)

	require.NotNil(t, v.NextStop)
	assert.Equal(t, "b", v.NextStop.ID)
	assert.Nil(t, v.DistanceMeters)
	assert.Nil(t, v.TravelMinutes)
	assert.Nil(t, v.Late)
	assert.Contains(t, v.Hint, "缺少座標")
	assert.Equal(t, "no_coordinates", v.Outcome())
}

func TestAnalyze_MissingAnchorLeavesLatenessUnknown(t *testing.T) {
	stops := []itinerary.Stop{
		{ID: "a", Name: "A", Location: pointX, Start: clock("09:00")},
		{ID: "b", Name: "B", Location: pointY},
	}
	v := itinerary.Analyze(stops, "a", itinerary.Drive)

	require.NotNil(t, v.TravelMinutes)
	assert.Equal(t, 45, *v.TravelMinutes)
	assert.Nil(t, v.Late)
	assert.Contains(t, v.Hint, "無法判斷是否會遲到")
	assert.Equal(t, "unknown", v.Outcome())
}

func TestAnalyze_WalkMode(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("11:00"), "a", itinerary.Walk)
	require.NotNil(t, v.Late)
	assert.True(t, *v.Late)
	assert.Equal(t, itinerary.Walk, v.Mode)
	assert.Contains(t, v.Hint, "步行")
}

func TestAnalyze_UnknownModeFallsBackToDrive(t *testing.T) {
	v := itinerary.Analyze(dayWithNextStart("11:00"), "a", itinerary.Mode("hover"))
	assert.Equal(t, itinerary.Drive, v.Mode)
	require.NotNil(t, v.TravelMinutes)
	assert.Equal(t, 45, *v.TravelMinutes)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	stops := dayWithNextStart("11:00")
	_ = itinerary.Analyze(stops, "a", itinerary.Drive)
	assert.Equal(t, "b", stops[0].ID)
	assert.Equal(t, "a", stops[1].ID)
}

func TestSortStops_ChronologicalThenName(t *testing.T) {
	stops := []itinerary.Stop{
		{ID: "zoo", Name: "Zoo"},
		{ID: "late", Name: "Late", Start: clock("15:00")},
		{ID: "aquarium", Name: "Aquarium"},
		{ID: "early-long", Name: "Early long", Start: clock("08:00"), End: clock("12:00")},
		{ID: "early-short", Name: "Early short", Start: clock("08:00"), End: clock("09:00")},
		{ID: "endonly", Name: "End only", End: clock("07:00")},
	}

	got := itinerary.SortStops(stops)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"early-short", "early-long", "late", "endonly", "aquarium", "zoo"}, ids)
	assert.Equal(t, "zoo", stops[0].ID, "input must not be reordered")
}

func TestSortStops_TimedBeforeUntimed(t *testing.T) {
	stops := []itinerary.Stop{
		{ID: "b", Name: "B"},
		{ID: "a", Name: "A"},
		{ID: "c", Name: "C", Start: clock("23:59")},
	}
	got := itinerary.SortStops(stops)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
}
