package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wondermap/wondermap-api/internal/genai"
	"github.com/wondermap/wondermap-api/internal/itinerary"
	"github.com/wondermap/wondermap-api/internal/metrics"
	"github.com/wondermap/wondermap-api/internal/places"
	"github.com/wondermap/wondermap-api/internal/suggest"
	"github.com/wondermap/wondermap-api/internal/travel"
)

type askRequest struct {
	Prompt string `json:"prompt"`
}

type voiceRequest struct {
	Text      string   `json:"text"`
	SpotName  string   `json:"spotName"`
	Desc      string   `json:"desc"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

// generate runs a prompt through the text generator and answers {"text": ...}.
func (h *Handlers) generate(w http.ResponseWriter, r *http.Request, purpose, prompt string) {
	if !h.text.Configured() {
		h.writeError(w, r, genai.ErrNotConfigured, purpose)
		return
	}

	start := time.Now()
	text, err := h.text.Generate(r.Context(), prompt)
	if err != nil {
		metrics.Generations.WithLabelValues(purpose, "error").Inc()
		h.log.Error("text generation failed", "purpose", purpose, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody("text generation failed"))
		return
	}
	metrics.Generations.WithLabelValues(purpose, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Ask handles POST /api/v1/ai/ask.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "ask")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		h.writeError(w, r, fmt.Errorf("prompt is required: %w", travel.ErrValidation), "ask")
		return
	}
	h.generate(w, r, "ask", req.Prompt)
}

// Voice handles POST /api/v1/ai/voice: a spoken question about a spot.
func (h *Handlers) Voice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "voice")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeError(w, r, fmt.Errorf("text is required: %w", travel.ErrValidation), "voice")
		return
	}

	q := suggest.VoiceQuestion{
		Text:        req.Text,
		SpotName:    req.SpotName,
		Description: req.Desc,
	}
	// Unparseable clocks are dropped.
	if t, ok := itinerary.ParseTime(req.StartTime); ok {
		q.StartTime = &t
	}
	if t, ok := itinerary.ParseTime(req.EndTime); ok {
		q.EndTime = &t
	}
	if req.Lat != nil && req.Lng != nil {
		q.Location = itinerary.NewGeoPoint(*req.Lat, *req.Lng)
	}
	h.generate(w, r, "voice", suggest.VoicePrompt(q))
}

// PlaceHours handles GET /api/v1/places/{placeId}/hours.
func (h *Handlers) PlaceHours(w http.ResponseWriter, r *http.Request) {
	if h.hours == nil {
		h.writeError(w, r, places.ErrNotConfigured, "place hours")
		return
	}

	placeID := chi.URLParam(r, "placeId")
	hours, err := h.hours.Hours(r.Context(), placeID)
	switch {
	case errors.Is(err, places.ErrNoHours), errors.Is(err, places.ErrUnknownPlace):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	case err != nil:
		h.writeError(w, r, err, "place hours")
		return
	}
	writeJSON(w, http.StatusOK, hours)
}
