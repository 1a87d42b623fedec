package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondermap/wondermap-api/internal/travel"
)

const (
	defaultFeedLimit = 300
	maxFeedLimit     = 500
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type postRequest struct {
	Email         string `json:"email"`
	MapName       string `json:"mapName"`
	MapType       string `json:"mapType"`
	IsRecommended bool   `json:"isRecommended"`
}

type spotRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// ownPost loads a post and checks that email owns it.
func (h *Handlers) ownPost(ctx context.Context, postID, email string) (travel.Post, error) {
	p, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		return travel.Post{}, err
	}
	if p.OwnerEmail != email {
		return travel.Post{}, travel.ErrForbidden
	}
	return p, nil
}

func (h *Handlers) invalidateFeed(r *http.Request) {
	if err := h.feed.InvalidatePublicFeed(r.Context()); err != nil {
		h.log.Warn("public feed invalidation failed", "err", err)
	}
}

// ListMyPosts handles GET /api/v1/me/posts?email=.
func (h *Handlers) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "list my posts")
		return
	}
	posts, err := h.posts.ListPostsByOwner(r.Context(), email, queryLimit(r, maxFeedLimit, maxFeedLimit))
	if err != nil {
		h.writeError(w, r, err, "list my posts")
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

// CreatePost handles POST /api/v1/me/posts.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "create post")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "create post")
		return
	}
	if strings.TrimSpace(req.MapName) == "" {
		h.writeError(w, r, fmt.Errorf("mapName is required: %w", travel.ErrValidation), "create post")
		return
	}

	id, err := h.posts.CreatePost(r.Context(), travel.Post{
		OwnerEmail:    email,
		MapName:       strings.TrimSpace(req.MapName),
		MapType:       strings.TrimSpace(req.MapType),
		IsRecommended: req.IsRecommended,
	})
	if err != nil {
		h.writeError(w, r, err, "create post")
		return
	}
	h.invalidateFeed(r)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdatePost handles PUT /api/v1/me/posts/{postId}. Owner only.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "update post")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "update post")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "update post")
		return
	}
	if err := h.posts.UpdatePost(r.Context(), postID, strings.TrimSpace(req.MapName), strings.TrimSpace(req.MapType)); err != nil {
		h.writeError(w, r, err, "update post")
		return
	}
	h.invalidateFeed(r)
	w.WriteHeader(http.StatusNoContent)
}

// DeletePost handles DELETE /api/v1/me/posts/{postId}?email=. Owner only;
// the post's spots go with it.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "delete post")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "delete post")
		return
	}
	if err := h.posts.DeletePost(r.Context(), postID); err != nil {
		h.writeError(w, r, err, "delete post")
		return
	}
	h.invalidateFeed(r)
	w.WriteHeader(http.StatusNoContent)
}

// RecommendedPost handles GET /api/v1/me/posts/recommended?email=.
func (h *Handlers) RecommendedPost(w http.ResponseWriter, r *http.Request) {
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "recommended post")
		return
	}
	p, err := h.posts.RecommendedPost(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "recommended post")
		return
	}
	writeJSON(w, http.StatusOK, toPost(p))
}

// UserPosts handles GET /api/v1/users/{email}/posts?limit=.
func (h *Handlers) UserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPostsByOwner(r.Context(), chi.URLParam(r, "email"), queryLimit(r, defaultPageLimit, maxPageLimit))
	if err != nil {
		h.writeError(w, r, err, "user posts")
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

// GetPost handles GET /api/v1/posts/{postId}.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		h.writeError(w, r, err, "get post")
		return
	}
	writeJSON(w, http.StatusOK, toPost(p))
}

// PublicPosts handles GET /api/v1/posts/public?limit=.
// Cache hit → return the cached body. Miss → query, cache, return.
func (h *Handlers) PublicPosts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultFeedLimit, maxFeedLimit)

	cached, err := h.feed.GetPublicFeed(r.Context(), limit)
	if err != nil {
		h.log.Error("public feed cache get failed", "limit", limit, "err", err)
	}
	if cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	posts, err := h.posts.ListPublicPosts(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err, "public posts")
		return
	}
	body, err := json.Marshal(toPosts(posts))
	if err != nil {
		h.writeError(w, r, err, "public posts")
		return
	}
	if err := h.feed.SetPublicFeed(r.Context(), limit, body); err != nil {
		h.log.Warn("public feed cache set failed", "limit", limit, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// SearchPosts handles GET /api/v1/posts/search?q=&limit=.
func (h *Handlers) SearchPosts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []postJSON{})
		return
	}
	posts, err := h.posts.SearchPosts(r.Context(), q, queryLimit(r, defaultPageLimit, maxPageLimit))
	if err != nil {
		h.writeError(w, r, err, "search posts")
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

// ListSpots handles GET /api/v1/posts/{postId}/spots.
func (h *Handlers) ListSpots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.posts.ListSpots(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		h.writeError(w, r, err, "list spots")
		return
	}
	writeJSON(w, http.StatusOK, spots)
}

// CreateSpot handles POST /api/v1/posts/{postId}/spots. Owner only.
func (h *Handlers) CreateSpot(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	var req spotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "create spot")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "create spot")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		h.writeError(w, r, fmt.Errorf("lat and lng are required: %w", travel.ErrValidation), "create spot")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "create spot")
		return
	}

	sp := travel.Spot{
		PostID:      postID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Lat:         *req.Lat,
		Lng:         *req.Lng,
	}
	id, err := h.posts.CreateSpot(r.Context(), sp)
	if err != nil {
		h.writeError(w, r, err, "create spot")
		return
	}
	sp.ID = id
	writeJSON(w, http.StatusCreated, sp)
}

// UpdateSpot handles PUT /api/v1/posts/{postId}/spots/{spotId}. Owner only.
func (h *Handlers) UpdateSpot(w http.ResponseWriter, r *http.Request) {
	postID, spotID := chi.URLParam(r, "postId"), chi.URLParam(r, "spotId")
	var req spotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, "update spot")
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err, "update spot")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "update spot")
		return
	}
	if err := h.posts.UpdateSpot(r.Context(), postID, spotID, strings.TrimSpace(req.Name), req.Description); err != nil {
		h.writeError(w, r, err, "update spot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSpot handles DELETE /api/v1/posts/{postId}/spots/{spotId}?email=. Owner only.
func (h *Handlers) DeleteSpot(w http.ResponseWriter, r *http.Request) {
	postID, spotID := chi.URLParam(r, "postId"), chi.URLParam(r, "spotId")
	email, err := queryEmail(r)
	if err != nil {
		h.writeError(w, r, err, "delete spot")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "delete spot")
		return
	}
	if err := h.posts.DeleteSpot(r.Context(), postID, spotID); err != nil {
		h.writeError(w, r, err, "delete spot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadSpotPhoto handles POST /api/v1/posts/{postId}/spots/{spotId}/photo
// (multipart: email, photo). Owner only.
func (h *Handlers) UploadSpotPhoto(w http.ResponseWriter, r *http.Request) {
	postID, spotID := chi.URLParam(r, "postId"), chi.URLParam(r, "spotId")
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.writeError(w, r, formError(err), "upload spot photo")
		return
	}
	email, err := requireEmail(r.FormValue("email"))
	if err != nil {
		h.writeError(w, r, err, "upload spot photo")
		return
	}
	if _, err := h.ownPost(r.Context(), postID, email); err != nil {
		h.writeError(w, r, err, "upload spot photo")
		return
	}
	if _, err := h.posts.GetSpot(r.Context(), postID, spotID); err != nil {
		h.writeError(w, r, err, "upload spot photo")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("photo is required: %w", travel.ErrValidation), "upload spot photo")
		return
	}
	defer file.Close()

	url, err := h.files.UploadSpotPhoto(r.Context(), postID, spotID, file)
	if err != nil {
		h.writeError(w, r, err, "upload spot photo")
		return
	}
	if err := h.posts.SetSpotPhoto(r.Context(), postID, spotID, url); err != nil {
		h.writeError(w, r, err, "upload spot photo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photoUrl": url})
}
