package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/model"
)

const (
	RenderPassesAPIPath     = "/api/passes"
	renderPassesLimitQuery  = "limit"
	renderPassesUnavailable = "history_disabled"
	renderPassesListFailure = "history_list_failed"
	renderPassesInvalid     = "invalid_limit"
)

// RenderPassLister lists recorded render passes, newest first.
type RenderPassLister interface {
	RecentRenderPasses(ctx context.Context, limit int) ([]model.RenderPass, error)
}

// RenderPassHandlers expose the render pass history.
type RenderPassHandlers struct {
	logger *zap.Logger
	lister RenderPassLister
}

// NewRenderPassHandlers constructs handlers; a nil lister reports the history as disabled.
func NewRenderPassHandlers(logger *zap.Logger, lister RenderPassLister) *RenderPassHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderPassHandlers{logger: logger, lister: lister}
}

// ListRenderPasses writes the most recent passes as JSON.
func (handlers *RenderPassHandlers) ListRenderPasses(context *gin.Context) {
	if handlers.lister == nil {
		context.JSON(http.StatusNotFound, gin.H{"error": renderPassesUnavailable})
		return
	}

	limit := 0
	if rawLimit := context.Query(renderPassesLimitQuery); rawLimit != "" {
		parsedLimit, parseErr := strconv.Atoi(rawLimit)
		if parseErr != nil || parsedLimit < 0 {
			context.JSON(http.StatusBadRequest, gin.H{"error": renderPassesInvalid})
			return
		}
		limit = parsedLimit
	}

	renderPasses, listErr := handlers.lister.RecentRenderPasses(context.Request.Context(), limit)
	if listErr != nil {
		handlers.logger.Error("list_render_passes", zap.Error(listErr))
		context.JSON(http.StatusInternalServerError, gin.H{"error": renderPassesListFailure})
		return
	}
	if renderPasses == nil {
		renderPasses = []model.RenderPass{}
	}
	context.JSON(http.StatusOK, gin.H{"passes": renderPasses})
}
