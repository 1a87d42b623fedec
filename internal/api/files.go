package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// GetFile handles GET /files/{key...}?expires=&sig=, serving a blob behind a
// signed URL.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	q := r.URL.Query()

	contentType, content, err := h.files.Open(r.Context(), key, q.Get("expires"), q.Get("sig"))
	if err != nil {
		h.writeError(w, r, err, "get file")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", time.Time{}, content)
}
