package handlers

import (
	"context"
	"net/http"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/inference"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ArtifactSource reports the model artifacts currently in use.
type ArtifactSource interface {
	Artifacts(ctx context.Context) (*inference.Artifacts, error)
}

type HealthHandler struct {
	artifacts ArtifactSource
}

func NewHealthHandler(artifacts ArtifactSource) *HealthHandler {
	return &HealthHandler{artifacts: artifacts}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if h.artifacts == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	a, err := h.artifacts.Artifacts(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("health check: model artifacts unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  domain.ReasonModelUnavailable.Message(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"artifact_version": a.Version,
		"loaded_at":        a.LoadedAt,
	})
}

// ArtifactReloader swaps in a freshly loaded artifact set.
type ArtifactReloader interface {
	ArtifactSource
	Reload(ctx context.Context) error
}

type ReloadHandler struct {
	reloader ArtifactReloader
}

func NewReloadHandler(reloader ArtifactReloader) *ReloadHandler {
	return &ReloadHandler{reloader: reloader}
}

// Reload re-reads the artifact directory. The previous set keeps serving on failure.
func (h *ReloadHandler) Reload(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.reloader.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("artifact reload failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "artifact reload failed"})
		return
	}

	a, err := h.reloader.Artifacts(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ReasonModelUnavailable.Message()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "reloaded",
		"artifact_version": a.Version,
		"loaded_at":        a.LoadedAt,
	})
}
