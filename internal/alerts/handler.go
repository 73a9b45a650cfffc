package alerts

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/exports"
	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/response"
)

// Lister loads the filtered alerts list for an organization.
type Lister interface {
	Load(ctx context.Context, scope *uuid.UUID, f Filter) (*listing.Result[models.Alert], error)
}

// NewHook wires the alerts repository into a list hook.
func NewHook(repo *Repository, cache listing.Cache, opts listing.Options, logger *zap.Logger) *listing.Hook[models.Alert, Filter] {
	return listing.New[models.Alert, Filter](listing.CollectionAlerts, repo.ListByOrg, Match, cache, opts, logger)
}

// Handler handles alert HTTP endpoints.
type Handler struct {
	list    Lister
	exports *exports.Service
	logger  *zap.Logger
}

// NewHandler creates an alerts handler. exp may be nil.
func NewHandler(list Lister, exp *exports.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{list: list, exports: exp, logger: logger}
}

// List handles GET /alerts.
func (h *Handler) List(c *gin.Context) {
	f, st := ParseFilter(c.Request.URL.Query())
	res, err := h.list.Load(c.Request.Context(), middleware.Scope(c), f)
	if err != nil {
		h.logger.Warn("load alerts failed", zap.Error(err))
		response.Internal(c, "failed to load alerts")
		return
	}
	response.OK(c, listing.NewPage(res, Schema, st))
}

// Export handles POST /alerts/export.
func (h *Handler) Export(c *gin.Context) {
	if h.exports == nil {
		response.ServiceUnavailable(c, "exports are not configured")
		return
	}
	scope := middleware.Scope(c)
	if scope == nil {
		response.BadRequest(c, "select an organization first")
		return
	}
	f, _ := ParseFilter(c.Request.URL.Query())
	res, err := h.list.Load(c.Request.Context(), scope, f)
	if err != nil {
		h.logger.Warn("load alerts failed", zap.Error(err))
		response.Internal(c, "failed to load alerts")
		return
	}
	exp, err := exports.Write(c.Request.Context(), h.exports, *scope, "alerts", res.Rows)
	if err != nil {
		h.logger.Error("export alerts failed", zap.Error(err))
		response.Internal(c, "failed to export alerts")
		return
	}
	response.Created(c, exp)
}
