package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// FolderResolver maps a Drive folder path to its id.
type FolderResolver interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	files    FileStore
	folders  FolderResolver
	sync     *CatalogSync
	ingest   *IngestService
	defaults SyncOptions
}

// NewHandler wires the Drive routes. ingest may be nil when no database is configured.
func NewHandler(files FileStore, folders FolderResolver, ingest *IngestService, defaults SyncOptions) *Handler {
	return &Handler{
		files:    files,
		folders:  folders,
		sync:     NewCatalogSync(files),
		ingest:   ingest,
		defaults: defaults,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/sync", h.SyncCatalog).Methods(http.MethodPost)
	router.HandleFunc("/api/drive/ingest", h.IngestCatalog).Methods(http.MethodPost)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.resolveFolder(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	files, err := h.files.ListFiles(r.Context(), folderID)
	if err != nil {
		log.Error().Err(err).Str("folder_id", folderID).Msg("drive list failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to list drive files"})
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.sync.Sync(r.Context(), opts)
	if err != nil {
		log.Error().Err(err).Str("folder_id", opts.FolderID).Msg("drive sync failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("sync failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IngestCatalog(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database ingest is not configured"})
		return
	}

	opts, err := h.options(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.ingest.Ingest(r.Context(), opts)
	if err != nil {
		log.Error().Err(err).Str("folder_id", opts.FolderID).Msg("drive ingest failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("ingestion failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) options(r *http.Request) (SyncOptions, error) {
	opts := h.defaults
	if r.URL.Query().Get("folderId") == "" && r.URL.Query().Get("path") == "" {
		return opts, nil
	}
	folderID, err := h.resolveFolder(r)
	if err != nil {
		return opts, err
	}
	opts.FolderID = folderID
	return opts, nil
}

func (h *Handler) resolveFolder(r *http.Request) (string, error) {
	query := r.URL.Query()
	if path := query.Get("path"); path != "" && h.folders != nil {
		return h.folders.FindFolderByPath(r.Context(), path)
	}
	if id := query.Get("folderId"); id != "" {
		return id, nil
	}
	return h.defaults.FolderID, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
