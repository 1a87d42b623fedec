// Package travel holds the records served by the API: profiles, posts and
// their spots, trips and their per-day stops.
package travel

import (
	"slices"
	"time"

	"github.com/wondermap/wondermap-api/internal/itinerary"
)

// MaxTripDays caps the length of a trip.
const MaxTripDays = 7

// Profile is a user's public-facing profile. Email is the identity key.
type Profile struct {
	Email        string    `json:"email"`
	UserName     string    `json:"userName"`
	UserLabel    string    `json:"userLabel"`
	Introduction string    `json:"introduction"`
	PhotoURL     *string   `json:"photoUrl"`
	FirstLogin   bool      `json:"firstLogin"`
	Following    []string  `json:"-"`
	Favorites    []string  `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// DefaultProfile is what a user sees before saving anything.
func DefaultProfile(email string) Profile {
	return Profile{Email: email, FirstLogin: true}
}

// FollowedUser is the summary shown in a following list.
type FollowedUser struct {
	Email        string  `json:"email"`
	UserName     string  `json:"userName"`
	Introduction string  `json:"introduction"`
	PhotoURL     *string `json:"photoUrl"`
}

// Post is a user's published map.
type Post struct {
	ID            string    `json:"id"`
	OwnerEmail    string    `json:"ownerEmail"`
	MapName       string    `json:"mapName"`
	MapType       string    `json:"mapType"`
	IsRecommended bool      `json:"isRecommended"`
	Likes         int       `json:"likes"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// CreatedAtMillis is the creation time as Unix milliseconds.
func (p Post) CreatedAtMillis() int64 {
	return millis(p.CreatedAt)
}

// Spot is a pinned location on a post's map.
type Spot struct {
	ID          string    `json:"id"`
	PostID      string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	PhotoURL    *string   `json:"photoUrl"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Trip is a multi-day itinerary owned by one user and optionally shared.
type Trip struct {
	ID            string     `json:"id"`
	OwnerEmail    string     `json:"ownerEmail"`
	Title         string     `json:"title"`
	Collaborators []string   `json:"collaborators"`
	Days          int        `json:"days"`
	StartDate     *time.Time `json:"-"`
	EndDate       *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"-"`
}

// IsOwner reports whether email owns the trip.
func (t Trip) IsOwner(email string) bool {
	return email != "" && email == t.OwnerEmail
}

// CanEdit reports whether email may read or change the trip's stops.
func (t Trip) CanEdit(email string) bool {
	return t.IsOwner(email) || (email != "" && slices.Contains(t.Collaborators, email))
}

// DayDate returns the calendar date of the given 1-based trip day as seen
// in loc, or false when the trip has no start date.
func (t Trip) DayDate(day int, loc *time.Location) (time.Time, bool) {
	if t.StartDate == nil {
		return time.Time{}, false
	}
	return t.StartDate.In(loc).AddDate(0, 0, ClampDay(day)-1), true
}

// TripSpan normalises a requested date range: the end is pulled in so the
// trip never exceeds MaxTripDays, and the day count is clamped to 1..7.
func TripSpan(startMillis, endMillis int64) (start, end time.Time, days int) {
	const dayMillis = int64(24 * time.Hour / time.Millisecond)
	if maxEnd := startMillis + (MaxTripDays-1)*dayMillis; endMillis > maxEnd {
		endMillis = maxEnd
	}
	days = int((endMillis-startMillis)/dayMillis) + 1
	days = max(1, min(MaxTripDays, days))
	return time.UnixMilli(startMillis).UTC(), time.UnixMilli(endMillis).UTC(), days
}

// ClampDay forces a day number into 1..MaxTripDays.
func ClampDay(day int) int {
	return max(1, min(MaxTripDays, day))
}

// DefaultCategory is used for stops created without a category.
const DefaultCategory = "景點"

// TripStop is a stored stop on one day of a trip.
type TripStop struct {
	ID           string                 `json:"id"`
	TripID       string                 `json:"-"`
	Day          int                    `json:"day"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Location     *itinerary.GeoPoint    `json:"-"`
	PhotoURL     *string                `json:"photoUrl"`
	StartTime    *itinerary.TimeOfDay   `json:"startTime"`
	EndTime      *itinerary.TimeOfDay   `json:"endTime"`
	Category     string                 `json:"category"`
	OpeningHours *itinerary.WeeklyHours `json:"openingHours,omitempty"`
	PlaceID      string                 `json:"placeId,omitempty"`
	AISuggestion string                 `json:"aiSuggestion"`
	AIUpdatedAt  *time.Time             `json:"-"`
	CreatedAt    time.Time              `json:"-"`
	UpdatedAt    time.Time              `json:"-"`
}

// ItineraryStop projects the record onto the scheduling view.
func (s TripStop) ItineraryStop() itinerary.Stop {
	return itinerary.Stop{
		ID:       s.ID,
		Name:     s.Name,
		Location: s.Location,
		Start:    s.StartTime,
		End:      s.EndTime,
	}
}

// ItineraryStops projects a whole day.
func ItineraryStops(stops []TripStop) []itinerary.Stop {
	out := make([]itinerary.Stop, len(stops))
	for i, s := range stops {
		out[i] = s.ItineraryStop()
	}
	return out
}

// StopPatch carries the fields of a partial stop update. Nil means "leave as is".
type StopPatch struct {
	Name         *string
	Description  *string
	Category     *string
	StartTime    **itinerary.TimeOfDay
	EndTime      **itinerary.TimeOfDay
	Location     **itinerary.GeoPoint
	OpeningHours *itinerary.WeeklyHours
}

// AffectsSuggestion reports whether applying the patch makes the stored AI
// suggestion stale.
func (p StopPatch) AffectsSuggestion() bool {
	return p.Name != nil || p.Description != nil || p.Category != nil ||
		p.StartTime != nil || p.EndTime != nil || p.Location != nil || p.OpeningHours != nil
}

// Apply returns s with the patch applied.
func (p StopPatch) Apply(s TripStop) TripStop {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.OpeningHours != nil {
		s.OpeningHours = p.OpeningHours
	}
	return s
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
