package overview

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/pkg/response"
)

// Handler serves GET /overview.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an overview handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Get handles GET /overview.
func (h *Handler) Get(c *gin.Context) {
	sum, err := h.service.Summarize(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		h.logger.Warn("load overview failed", zap.Error(err))
		response.Internal(c, "failed to load overview")
		return
	}
	response.OK(c, sum)
}
