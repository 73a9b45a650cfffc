package stores

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/response"
)

// Lister loads the filtered stores list for an organization.
type Lister interface {
	Load(ctx context.Context, scope *uuid.UUID, f Filter) (*listing.Result[models.Store], error)
}

// NewHook wires the stores repository into a list hook.
func NewHook(repo *Repository, cache listing.Cache, opts listing.Options, logger *zap.Logger) *listing.Hook[models.Store, Filter] {
	return listing.New[models.Store, Filter](listing.CollectionStores, repo.ListByOrg, Match, cache, opts, logger)
}

// Handler handles store HTTP endpoints.
type Handler struct {
	list    Lister
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a stores handler.
func NewHandler(list Lister, service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{list: list, service: service, logger: logger}
}

// SaveCredentialsRequest is the body for PUT /organizations/:id/stores/:storeId/credentials.
type SaveCredentialsRequest struct {
	Credentials map[string]string `json:"credentials" binding:"required"`
}

// CredentialView is a credential record with its secret values masked.
type CredentialView struct {
	StoreID     uuid.UUID         `json:"store_id"`
	Credentials map[string]string `json:"credentials"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

func newCredentialView(c *models.Credential) CredentialView {
	v := CredentialView{StoreID: c.StoreID, Credentials: make(map[string]string, len(c.Credentials))}
	for k, val := range c.Credentials {
		v.Credentials[k] = mask(val)
	}
	if !c.UpdatedAt.IsZero() {
		v.UpdatedAt = c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return v
}

// mask keeps the last four characters of longer secrets.
func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// List handles GET /stores.
func (h *Handler) List(c *gin.Context) {
	f, st := ParseFilter(c.Request.URL.Query())
	res, err := h.list.Load(c.Request.Context(), middleware.Scope(c), f)
	if err != nil {
		h.logger.Warn("load stores failed", zap.Error(err))
		response.Internal(c, "failed to load stores")
		return
	}
	response.OK(c, listing.NewPage(res, Schema, st))
}

// GetCredentials handles GET /organizations/:id/stores/:storeId/credentials. Requires admin.
func (h *Handler) GetCredentials(c *gin.Context) {
	orgID, storeID, ok := h.params(c)
	if !ok {
		return
	}
	cred, err := h.service.Credentials(c.Request.Context(), orgID, storeID)
	switch {
	case errors.Is(err, ErrStoreNotFound):
		response.NotFound(c, "store not found")
	case errors.Is(err, ErrCredentialNotFound):
		response.OK(c, CredentialView{StoreID: storeID, Credentials: map[string]string{}})
	case err != nil:
		h.logger.Warn("load credentials failed", zap.String("store_id", storeID.String()), zap.Error(err))
		response.Internal(c, "failed to load credentials")
	default:
		response.OK(c, newCredentialView(cred))
	}
}

// SaveCredentials handles PUT /organizations/:id/stores/:storeId/credentials. Requires admin.
func (h *Handler) SaveCredentials(c *gin.Context) {
	orgID, storeID, ok := h.params(c)
	if !ok {
		return
	}
	var body SaveCredentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "credentials required")
		return
	}
	cred, err := h.service.SaveCredentials(c.Request.Context(), orgID, storeID, body.Credentials)
	if errors.Is(err, ErrStoreNotFound) {
		response.NotFound(c, "store not found")
		return
	}
	if err != nil {
		h.logger.Error("save credentials failed", zap.String("store_id", storeID.String()), zap.Error(err))
		response.Internal(c, "failed to save credentials")
		return
	}
	response.OK(c, newCredentialView(cred))
}

// HealthCheck handles POST /organizations/:id/stores/:storeId/health-check. Requires admin.
func (h *Handler) HealthCheck(c *gin.Context) {
	orgID, storeID, ok := h.params(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	job, err := h.service.RequestHealthCheck(c.Request.Context(), orgID, storeID, userID)
	if errors.Is(err, ErrStoreNotFound) {
		response.NotFound(c, "store not found")
		return
	}
	if err != nil {
		h.logger.Error("enqueue health check failed", zap.String("store_id", storeID.String()), zap.Error(err))
		response.ServiceUnavailable(c, "failed to schedule health check")
		return
	}
	response.Accepted(c, gin.H{"job_id": job.ID, "store_id": storeID})
}

func (h *Handler) params(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	scope := middleware.Scope(c)
	if scope == nil {
		response.BadRequest(c, "invalid organization id")
		return uuid.Nil, uuid.Nil, false
	}
	storeID, err := uuid.Parse(c.Param("storeId"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return uuid.Nil, uuid.Nil, false
	}
	return *scope, storeID, true
}
