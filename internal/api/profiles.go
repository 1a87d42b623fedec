package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wondermap/wondermap-api/internal/travel"
)

// maxFormMemory is how much of a multipart upload is held in memory before
// spilling to disk.
const maxFormMemory = 8 << 20

type profileRequest struct {
	Email        string  `json:"email"`
	UserName     string  `json:"userName"`
	UserLabel    string  `json:"userLabel"`
	Introduction string  `json:"introduction"`
	FirstLogin   bool    `json:"firstLogin"`
	PhotoURL     *string `json:"photoUrl"`
}

// GetProfile handles GET /api/v1/me/profile?email=.
// A user who never saved a profile gets the default one.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "get profile")
		return
	}

	p, err := h.users.GetProfile(r.Context(), email)
	if errors.Is(err, travel.ErrNotFound) {
		p, err = travel.DefaultProfile(email), nil
	}
	if err != nil {
		h.writeError(w, r, err, "get profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutProfile handles PUT /api/v1/me/profile.
func (h *Handlers) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "put profile")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "put profile")
		return
	}

	p := travel.Profile{
		Email:        email,
		UserName:     req.UserName,
		UserLabel:    req.UserLabel,
		Introduction: req.Introduction,
		FirstLogin:   req.FirstLogin,
		PhotoURL:     req.PhotoURL,
	}
	if err := h.users.UpsertProfile(r.Context(), p); err != nil {
		h.writeError(w, r, err, "put profile")
		return
	}

	saved, err := h.users.GetProfile(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "put profile")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// UploadProfilePhoto handles POST /api/v1/me/profile/photo (multipart: email, photo).
func (h *Handlers) UploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.writeError(w, r, formError(err), "upload profile photo")
		return
	}
	email, err := requireEmail(r.FormValue("email"))
	if err != nil {
		h.writeError(w, r, err, "upload profile photo")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("photo is required: %w", travel.ErrValidation), "upload profile photo")
		return
	}
	defer file.Close()

	url, err := h.files.UploadProfilePhoto(r.Context(), email, file)
	if err != nil {
		h.writeError(w, r, err, "upload profile photo")
		return
	}
	if err := h.users.SetProfilePhoto(r.Context(), email, url); err != nil {
		h.writeError(w, r, err, "upload profile photo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photoUrl": url})
}

// formError keeps body-size failures recognisable and turns every other
// multipart parse failure into a validation error.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("invalid multipart form: %v: %w", err, travel.ErrValidation)
}

// ListFavorites handles GET /api/v1/me/favorites?email=.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "list favorites")
		return
	}
	posts, err := h.users.ListFavoritePosts(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "list favorites")
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

// AddFavorite handles PUT /api/v1/me/favorites/{postId}?email=.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.editList(w, r, "postId", "add favorite", h.users.AddFavorite)
}

// RemoveFavorite handles DELETE /api/v1/me/favorites/{postId}?email=.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.editList(w, r, "postId", "remove favorite", h.users.RemoveFavorite)
}

// ListFollowing handles GET /api/v1/me/following?email=.
func (h *Handlers) ListFollowing(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "list following")
		return
	}
	users, err := h.users.ListFollowing(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "list following")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Follow handles PUT /api/v1/me/following/{target}?email=.
func (h *Handlers) Follow(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "target") == r.URL.Query().Get("email") {
		h.writeError(w, r, fmt.Errorf("cannot follow yourself: %w", travel.ErrValidation), "follow")
		return
	}
	h.editList(w, r, "target", "follow", h.users.AddFollowing)
}

// Unfollow handles DELETE /api/v1/me/following/{target}?email=.
func (h *Handlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.editList(w, r, "target", "unfollow", h.users.RemoveFollowing)
}

func (h *Handlers) editList(w http.ResponseWriter, r *http.Request, param, msg string, edit func(ctx context.Context, email, value string) error) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	if err := edit(r.Context(), email, chi.URLParam(r, param)); err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublicProfile handles GET /api/v1/users/{email}/public.
func (h *Handlers) PublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, err, "public profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
