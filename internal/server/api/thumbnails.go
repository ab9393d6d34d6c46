package api

import (
	"errors"
	"net/http"

	"watch-tryon/internal/thumbnail"
)

// ThumbnailHandler serves cached product thumbnails.
type ThumbnailHandler struct {
	cache *thumbnail.Cache
}

// NewThumbnailHandler creates a new ThumbnailHandler.
func NewThumbnailHandler(cache *thumbnail.Cache) *ThumbnailHandler {
	return &ThumbnailHandler{cache: cache}
}

// ServeHTTP handles GET /api/thumbnails?image={name}.
func (h *ThumbnailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := r.URL.Query().Get("image")
	if name == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	path, err := h.cache.Get(name)
	if err != nil {
		if errors.Is(err, thumbnail.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to render thumbnail")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
