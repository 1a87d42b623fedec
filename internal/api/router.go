package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/wondermap/wondermap-api/internal/metrics"
)

// RouterConfig carries the HTTP-level settings of the router.
type RouterConfig struct {
	Token              string
	CORSOrigins        []string
	RateLimitPerMinute int
	MaxBodyBytes       int64
}

// multipartOverhead is the room left above the upload limit for form
// boundaries and the other form fields.
const multipartOverhead = 64 << 10

// NewRouter builds and returns the Chi router with all routes configured.
// Health, metrics and signed file downloads are unauthenticated; every other
// route requires bearer auth. Rate limiting is applied per IP.
func NewRouter(h *Handlers, cfg RouterConfig, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(SlogLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(NewCORSHandler(cfg.CORSOrigins))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(MaxBodySize(cfg.MaxBodyBytes + multipartOverhead))
	}

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/files/*", h.GetFile)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.Token))

		r.Route("/me", func(r chi.Router) {
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.PutProfile)
			r.Post("/profile/photo", h.UploadProfilePhoto)

			r.Get("/favorites", h.ListFavorites)
			r.Put("/favorites/{postId}", h.AddFavorite)
			r.Delete("/favorites/{postId}", h.RemoveFavorite)

			r.Get("/following", h.ListFollowing)
			r.Put("/following/{target}", h.Follow)
			r.Delete("/following/{target}", h.Unfollow)

			r.Get("/posts", h.ListMyPosts)
			r.Post("/posts", h.CreatePost)
			r.Get("/posts/recommended", h.RecommendedPost)
			r.Put("/posts/{postId}", h.UpdatePost)
			r.Delete("/posts/{postId}", h.DeletePost)

			r.Get("/trips", h.ListTrips)
			r.Post("/trips", h.CreateTrip)
			r.Route("/trips/{tripId}", func(r chi.Router) {
				r.Delete("/", h.DeleteTrip)
				r.Put("/title", h.RenameTrip)
				r.Put("/dates", h.SetTripDates)
				r.Put("/collaborators/{collaborator}", h.AddCollaborator)
				r.Delete("/collaborators/{collaborator}", h.RemoveCollaborator)

				r.Route("/days/{day}/stops", func(r chi.Router) {
					r.Get("/", h.ListStops)
					r.Post("/", h.CreateStop)
					r.Put("/{stopId}", h.UpdateStop)
					r.Delete("/{stopId}", h.DeleteStop)
					r.Post("/{stopId}/ai", h.GenerateSuggestion)
					r.Get("/{stopId}/feasibility", h.Feasibility)
				})
			})
		})

		r.Get("/users/{email}/public", h.PublicProfile)
		r.Get("/users/{email}/posts", h.UserPosts)

		r.Get("/posts/public", h.PublicPosts)
		r.Get("/posts/search", h.SearchPosts)
		r.Get("/posts/{postId}", h.GetPost)
		r.Get("/posts/{postId}/spots", h.ListSpots)
		r.Post("/posts/{postId}/spots", h.CreateSpot)
		r.Put("/posts/{postId}/spots/{spotId}", h.UpdateSpot)
		r.Delete("/posts/{postId}/spots/{spotId}", h.DeleteSpot)
		r.Post("/posts/{postId}/spots/{spotId}/photo", h.UploadSpotPhoto)

		r.Post("/ai/ask", h.Ask)
		r.Post("/ai/voice", h.Voice)

		r.Get("/places/{placeId}/hours", h.PlaceHours)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
