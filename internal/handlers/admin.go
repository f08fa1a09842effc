package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/platform/logger"
)

// SimilarityRefresher recomputes the precomputed similarity relationships.
type SimilarityRefresher func(ctx context.Context) error

type AdminHandler struct {
	refresh SimilarityRefresher
	log     *logger.Logger
}

func NewAdminHandler(refresh SimilarityRefresher, baseLog *logger.Logger) *AdminHandler {
	return &AdminHandler{refresh: refresh, log: baseLog.With("handler", "AdminHandler")}
}

// RefreshSimilarity serves POST /admin/similarity/refresh. The recompute runs
// synchronously; GDS projections over realistic user counts finish well within
// a request timeout and callers want to know it completed.
func (ah *AdminHandler) RefreshSimilarity(c *gin.Context) {
	if ah.refresh == nil {
		RespondError(c, apierr.Unavailable(fmt.Errorf("similarity graph is not configured")))
		return
	}
	if err := ah.refresh(c.Request.Context()); err != nil {
		ah.log.Error("Similarity refresh failed", "error", err)
		RespondError(c, apierr.Unavailable(err))
		return
	}
	ah.log.Info("Similarity refresh completed")
	RespondOK(c, gin.H{"refreshed": true})
}
