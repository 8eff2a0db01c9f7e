package storage

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Handler exposes artifact fetch and publish over HTTP.
type Handler struct {
	sync  *ArtifactSync
	dir   string
	files []string
}

func NewHandler(sync *ArtifactSync, dir string, files []string) *Handler {
	return &Handler{sync: sync, dir: dir, files: files}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/artifacts/fetch", h.Fetch).Methods(http.MethodPost)
	router.HandleFunc("/api/artifacts/publish", h.Publish).Methods(http.MethodPost)
}

func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	paths, err := h.sync.Fetch(r.Context(), h.dir, h.files)
	if err != nil {
		log.Error().Err(err).Str("dir", h.dir).Msg("artifact fetch failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": paths})
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	keys, err := h.sync.Publish(r.Context(), h.dir, h.files)
	if err != nil {
		log.Error().Err(err).Str("dir", h.dir).Msg("artifact publish failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
