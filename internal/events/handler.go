package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/exports"
	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/response"
)

// Lister loads the filtered events list for an organization.
type Lister interface {
	Load(ctx context.Context, scope *uuid.UUID, f Filter) (*listing.Result[models.Event], error)
}

// Reader loads events with their payloads, which the list read leaves out.
type Reader interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Event, error)
	Payloads(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]json.RawMessage, error)
}

// NewHook wires the events repository into a list hook.
func NewHook(repo *Repository, cache listing.Cache, opts listing.Options, logger *zap.Logger) *listing.Hook[models.Event, Filter] {
	return listing.New[models.Event, Filter](listing.CollectionEvents, repo.ListByOrg, Match, cache, opts, logger)
}

// Handler handles event HTTP endpoints.
type Handler struct {
	list    Lister
	reader  Reader
	exports *exports.Service
	logger  *zap.Logger
}

// NewHandler creates an events handler. exp may be nil when object storage is not configured.
func NewHandler(list Lister, reader Reader, exp *exports.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{list: list, reader: reader, exports: exp, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	f, st := ParseFilter(c.Request.URL.Query())
	res, err := h.list.Load(c.Request.Context(), middleware.Scope(c), f)
	if err != nil {
		h.logger.Warn("load events failed", zap.Error(err))
		response.Internal(c, "failed to load events")
		return
	}
	response.OK(c, listing.NewPage(res, Schema, st))
}

// Get handles GET /events/:id, the payload view of a single event.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	scope := middleware.Scope(c)
	if scope == nil {
		response.NotFound(c, "event not found")
		return
	}
	e, err := h.reader.GetByID(c.Request.Context(), *scope, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Warn("load event failed", zap.String("event_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Export handles POST /events/export: the current filtered view is written to object storage.
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
		h.logger.Warn("load events failed", zap.Error(err))
		response.Internal(c, "failed to load events")
		return
	}
	rows, err := h.withPayloads(c.Request.Context(), *scope, res.Rows)
	if err != nil {
		h.logger.Warn("load event payloads failed", zap.Error(err))
		response.Internal(c, "failed to load events")
		return
	}
	exp, err := exports.Write(c.Request.Context(), h.exports, *scope, "events", rows)
	if err != nil {
		h.logger.Error("export events failed", zap.Error(err))
		response.Internal(c, "failed to export events")
		return
	}
	response.Created(c, exp)
}

// withPayloads copies rows and fills in their stored payloads. rows is shared with the list memo
// and is not modified.
func (h *Handler) withPayloads(ctx context.Context, orgID uuid.UUID, rows []models.Event) ([]models.Event, error) {
	ids := make([]uuid.UUID, len(rows))
	for i, e := range rows {
		ids[i] = e.ID
	}
	payloads, err := h.reader.Payloads(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, len(rows))
	for i, e := range rows {
		e.Payload = payloads[e.ID]
		out[i] = e
	}
	return out, nil
}
