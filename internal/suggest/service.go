// Package suggest assembles everything known about a trip stop (its day,
// opening hours and the leg to the next stop) and turns it into an AI
// suggestion.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/metrics"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// Store is the subset of storage the service needs.
type Store interface {
	GetTrip(ctx context.Context, id string) (travel.Trip, error)
	ListStops(ctx context.Context, tripID string, day int) ([]travel.TripStop, error)
	SetStopHours(ctx context.Context, tripID string, day int, stopID string, hours itinerary.WeeklyHours) error
	SetStopSuggestion(ctx context.Context, tripID string, day int, stopID, text string) error
}

// HoursLookup resolves opening hours for an external place id.
type HoursLookup interface {
	Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service evaluates and describes trip stops.
type Service struct {
	store Store
	hours HoursLookup
	gen   Generator
	loc   *time.Location
	now   func() time.Time
	log   *slog.Logger
}

// NewService constructs a Service. loc decides which weekday a trip day
// falls on. hours may be nil when no places lookup is configured.
func NewService(store Store, hours HoursLookup, gen Generator, loc *time.Location, log *slog.Logger) *Service {
	return &Service{store: store, hours: hours, gen: gen, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the wall clock used when a trip has no dates (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Assessment is everything the service derives for one stop.
type Assessment struct {
	Trip    travel.Trip
	Stop    travel.TripStop
	Day     []travel.TripStop
	Weekday time.Weekday
	Open    itinerary.OpenState
	Verdict itinerary.Verdict
}

// Assess loads the stop's trip and day, checks that email may edit the trip,
// resolves opening hours and analyses the leg to the next stop.
func (s *Service) Assess(ctx context.Context, email, tripID string, day int, stopID string, mode itinerary.Mode) (*Assessment, error) {
	day = travel.ClampDay(day)

	g, gCtx := errgroup.WithContext(ctx)

	var trip travel.Trip
	var stops []travel.TripStop

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("trip load panicked", "recover", r)
				err = fmt.Errorf("trip load panicked: %v", r)
			}
		}()
		t, loadErr := s.store.GetTrip(gCtx, tripID)
		if loadErr != nil {
			return fmt.Errorf("loading trip: %w", loadErr)
		}
		trip = t
		return nil
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("stops load panicked", "recover", r)
				err = fmt.Errorf("stops load panicked: %v", r)
			}
		}()
		st, loadErr := s.store.ListStops(gCtx, tripID, day)
		if loadErr != nil {
			return fmt.Errorf("loading stops: %w", loadErr)
		}
		stops = st
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !trip.CanEdit(email) {
		return nil, travel.ErrForbidden
	}

	idx := -1
	for i := range stops {
		if stops[i].ID == stopID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("stop %s: %w", stopID, travel.ErrNotFound)
	}

	stops[idx] = s.withHours(ctx, stops[idx])
	stop := stops[idx]

	a := &Assessment{
		Trip:    trip,
		Stop:    stop,
		Day:     stops,
		Weekday: s.weekday(trip, day),
		Open:    itinerary.OpenUnknown,
	}
	if stop.OpeningHours != nil && stop.StartTime != nil {
		a.Open = itinerary.IsLikelyOpen(*stop.OpeningHours, a.Weekday, stop.StartTime.String(), nil)
	}

	a.Verdict = itinerary.Analyze(travel.ItineraryStops(stops), stopID, mode)
	metrics.Verdicts.WithLabelValues(a.Verdict.Outcome()).Inc()

	return a, nil
}

// weekday is the weekday of the stop's planned date, or today's when the
// trip has no dates.
func (s *Service) weekday(trip travel.Trip, day int) time.Weekday {
	if d, ok := trip.DayDate(day, s.loc); ok {
		return d.Weekday()
	}
	return s.now().In(s.loc).Weekday()
}

// withHours fills in missing opening hours from the places lookup and saves
// them on the stop. Lookup failures leave the stop unchanged.
func (s *Service) withHours(ctx context.Context, stop travel.TripStop) travel.TripStop {
	if stop.OpeningHours != nil || stop.PlaceID == "" || s.hours == nil {
		return stop
	}

	hours, err := s.hours.Hours(ctx, stop.PlaceID)
	if err != nil {
		s.log.Warn("opening hours lookup failed", "place_id", stop.PlaceID, "stop_id", stop.ID, "err", err)
		return stop
	}

	stop.OpeningHours = hours
	if err := s.store.SetStopHours(ctx, stop.TripID, stop.Day, stop.ID, *hours); err != nil {
		s.log.Warn("saving opening hours failed", "stop_id", stop.ID, "err", err)
	}
	return stop
}

// Generate writes a fresh suggestion for the stop, saves it and returns it.
// The next-stop leg is evaluated for driving.
func (s *Service) Generate(ctx context.Context, email, tripID string, day int, stopID string) (string, error) {
	a, err := s.Assess(ctx, email, tripID, day, stopID, itinerary.Drive)
	if err != nil {
		return "", err
	}

	text, err := s.gen.Generate(ctx, StopPrompt(a))
	if err != nil {
		metrics.Generations.WithLabelValues("stop", "error").Inc()
		return "", fmt.Errorf("generating suggestion for stop %s: %w", stopID, err)
	}
	metrics.Generations.WithLabelValues("stop", "ok").Inc()

	if text == "" {
		text = FallbackSuggestion
	}

	if err := s.store.SetStopSuggestion(ctx, tripID, a.Stop.Day, stopID, text); err != nil {
		return "", fmt.Errorf("saving suggestion: %w", err)
	}
	return text, nil
}
