package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/confabhq/confab-backend/internal/services"
	"github.com/confabhq/confab-backend/internal/types"
)

type RecommendationHandler struct {
	recService services.RecommendationService
}

func NewRecommendationHandler(recService services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recService: recService}
}

func limitQuery(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		return 10
	}
	return limit
}

// Get serves GET /recommendations/:user_id. Without a category query it
// returns the fused ranking; with ?category= it returns that category's raw
// candidates.
func (rh *RecommendationHandler) Get(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	limit := limitQuery(c)

	if raw := c.Query("category"); raw != "" {
		candidates, err := rh.recService.ForCategory(c.Request.Context(), userID, types.SimilarityCategory(raw), limit)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{"category": raw, "candidates": candidates})
		return
	}

	recs, err := rh.recService.Aggregate(c.Request.Context(), userID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"recommendations": recs})
}
