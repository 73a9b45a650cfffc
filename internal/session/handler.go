package session

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/pkg/response"
)

// ActiveOrgs reads and writes the per-user organization selection.
type ActiveOrgs interface {
	ActiveOrg(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	SetActiveOrg(ctx context.Context, userID, orgID uuid.UUID) error
	ClearActiveOrg(ctx context.Context, userID uuid.UUID) error
}

// Handler serves the active-organization endpoints.
type Handler struct {
	store   ActiveOrgs
	members middleware.MembershipChecker
	logger  *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(store ActiveOrgs, members middleware.MembershipChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, members: members, logger: logger}
}

// ActiveOrgResponse is returned by both endpoints. OrgID is null when nothing is selected.
type ActiveOrgResponse struct {
	OrgID *uuid.UUID `json:"org_id"`
	Role  string     `json:"role,omitempty"`
}

// SetActiveOrgRequest is the body for PUT /me/active-organization. A null org_id clears it.
type SetActiveOrgRequest struct {
	OrgID *uuid.UUID `json:"org_id"`
}

// Get handles GET /me/active-organization. A selection the user no longer belongs to is
// reported as none.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	orgID, err := h.store.ActiveOrg(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("read active organization failed", zap.Error(err))
		response.Internal(c, "failed to load active organization")
		return
	}
	if orgID == nil {
		response.OK(c, ActiveOrgResponse{})
		return
	}
	role, err := h.members.MemberRole(c.Request.Context(), *orgID, userID)
	if err != nil {
		response.Internal(c, "failed to check organization access")
		return
	}
	if role == "" {
		response.OK(c, ActiveOrgResponse{})
		return
	}
	response.OK(c, ActiveOrgResponse{OrgID: orgID, Role: role})
}

// Set handles PUT /me/active-organization.
func (h *Handler) Set(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body SetActiveOrgRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid org_id")
		return
	}
	ctx := c.Request.Context()
	if body.OrgID == nil {
		if err := h.store.ClearActiveOrg(ctx, userID); err != nil {
			h.logger.Warn("clear active organization failed", zap.Error(err))
			response.Internal(c, "failed to update active organization")
			return
		}
		response.OK(c, ActiveOrgResponse{})
		return
	}
	role, err := h.members.MemberRole(ctx, *body.OrgID, userID)
	if err != nil {
		response.Internal(c, "failed to check organization access")
		return
	}
	if role == "" {
		response.Forbidden(c, "not authorized for this organization")
		return
	}
	if err := h.store.SetActiveOrg(ctx, userID, *body.OrgID); err != nil {
		h.logger.Warn("set active organization failed", zap.Error(err))
		response.Internal(c, "failed to update active organization")
		return
	}
	response.OK(c, ActiveOrgResponse{OrgID: body.OrgID, Role: role})
}
