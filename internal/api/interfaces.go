package api

import (
	"context"
	"io"
	"time"

	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/suggest"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// UserStore defines the profile and social-graph operations needed by handlers.
type UserStore interface {
	GetProfile(ctx context.Context, email string) (travel.Profile, error)
	UpsertProfile(ctx context.Context, p travel.Profile) error
	SetProfilePhoto(ctx context.Context, email, url string) error
	AddFavorite(ctx context.Context, email, postID string) error
	RemoveFavorite(ctx context.Context, email, postID string) error
	AddFollowing(ctx context.Context, email, target string) error
	RemoveFollowing(ctx context.Context, email, target string) error
	ListFavoritePosts(ctx context.Context, email string) ([]travel.Post, error)
	ListFollowing(ctx context.Context, email string) ([]travel.FollowedUser, error)
}

// PostStore defines the post and spot operations needed by handlers.
type PostStore interface {
	CreatePost(ctx context.Context, p travel.Post) (string, error)
	GetPost(ctx context.Context, id string) (travel.Post, error)
	UpdatePost(ctx context.Context, id, mapName, mapType string) error
	DeletePost(ctx context.Context, id string) error
	ListPostsByOwner(ctx context.Context, email string, limit int) ([]travel.Post, error)
	RecommendedPost(ctx context.Context, email string) (travel.Post, error)
	ListPublicPosts(ctx context.Context, limit int) ([]travel.Post, error)
	SearchPosts(ctx context.Context, term string, limit int) ([]travel.Post, error)

	ListSpots(ctx context.Context, postID string) ([]travel.Spot, error)
	GetSpot(ctx context.Context, postID, spotID string) (travel.Spot, error)
	CreateSpot(ctx context.Context, sp travel.Spot) (string, error)
	UpdateSpot(ctx context.Context, postID, spotID, name, description string) error
	SetSpotPhoto(ctx context.Context, postID, spotID, url string) error
	DeleteSpot(ctx context.Context, postID, spotID string) error
}

// TripStore defines the trip and stop operations needed by handlers.
type TripStore interface {
	CreateTrip(ctx context.Context, t travel.Trip) (string, error)
	GetTrip(ctx context.Context, id string) (travel.Trip, error)
	ListTrips(ctx context.Context, email string) ([]travel.Trip, error)
	RenameTrip(ctx context.Context, id, title string) error
	SetTripDates(ctx context.Context, id string, start, end time.Time, days int) error
	DeleteTrip(ctx context.Context, id string) error
	AddCollaborator(ctx context.Context, id, email string) error
	RemoveCollaborator(ctx context.Context, id, email string) error

	ListStops(ctx context.Context, tripID string, day int) ([]travel.TripStop, error)
	GetStop(ctx context.Context, tripID string, day int, stopID string) (travel.TripStop, error)
	CreateStop(ctx context.Context, s travel.TripStop) (string, error)
	UpdateStop(ctx context.Context, s travel.TripStop) error
	DeleteStop(ctx context.Context, tripID string, day int, stopID string) error
}

// FeedCache defines the public-feed cache operations needed by handlers.
type FeedCache interface {
	GetPublicFeed(ctx context.Context, limit int) ([]byte, error)
	SetPublicFeed(ctx context.Context, limit int, body []byte) error
	InvalidatePublicFeed(ctx context.Context) error
}

// HoursLookup resolves opening hours for an external place id.
type HoursLookup interface {
	Hours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error)
}

// StopAdvisor evaluates stops and writes their AI suggestions.
type StopAdvisor interface {
	Assess(ctx context.Context, email, tripID string, day int, stopID string, mode itinerary.Mode) (*suggest.Assessment, error)
	Generate(ctx context.Context, email, tripID string, day int, stopID string) (string, error)
}

// TextGenerator answers free-form prompts.
type TextGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// FileStore uploads photos and serves signed downloads.
type FileStore interface {
	UploadProfilePhoto(ctx context.Context, email string, r io.Reader) (string, error)
	UploadSpotPhoto(ctx context.Context, postID, spotID string, r io.Reader) (string, error)
	Open(ctx context.Context, key, expires, sig string) (string, io.ReadSeeker, error)
}
