package web

import (
	"io"
	"net/http"
)

// handleGetImage serves a stored image by its storage key. The store rejects
// traversal outside its root.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("path")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	reader, mimeType, err := s.images.Get(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Error("failed to close image reader", "key", key, "error", err)
		}
	}()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("failed to write image", "key", key, "error", err)
	}
}
