package organizations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/response"
)

// TeamLister loads the filtered member list of an organization.
type TeamLister interface {
	Load(ctx context.Context, scope *uuid.UUID, f TeamFilter) (*listing.Result[models.Member], error)
}

// OrgLister loads the filtered organizations of a user.
type OrgLister interface {
	Load(ctx context.Context, scope *uuid.UUID, f OrgFilter) (*listing.Result[models.Organization], error)
}

// NewTeamHook wires member listing into a list hook scoped by organization.
func NewTeamHook(repo *Repository, cache listing.Cache, opts listing.Options, logger *zap.Logger) *listing.Hook[models.Member, TeamFilter] {
	return listing.New[models.Member, TeamFilter](listing.CollectionTeamMembers, repo.ListMembers, MatchMember, cache, opts, logger)
}

// NewOrgHook wires the organization switcher into a list hook scoped by user.
func NewOrgHook(repo *Repository, cache listing.Cache, opts listing.Options, logger *zap.Logger) *listing.Hook[models.Organization, OrgFilter] {
	return listing.New[models.Organization, OrgFilter](listing.CollectionOrganizations, repo.ListForUser, MatchOrganization, cache, opts, logger)
}

// Handler handles organization and team HTTP endpoints.
type Handler struct {
	team    TeamLister
	orgs    OrgLister
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(team TeamLister, orgs OrgLister, service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{team: team, orgs: orgs, service: service, logger: logger}
}

// AddMemberRequest is the body for POST /organizations/:id/members.
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// ChangeRoleRequest is the body for PATCH /organizations/:id/members/:userId.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// RenameRequest is the body for PATCH /organizations/:id.
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListMine handles GET /organizations. The switcher is scoped by the caller, not an organization.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	f, st := ParseOrgFilter(c.Request.URL.Query())
	res, err := h.orgs.Load(c.Request.Context(), &userID, f)
	if err != nil {
		h.logger.Warn("load organizations failed", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, listing.NewPage(res, OrgSchema, st))
}

// Rename handles PATCH /organizations/:id. Requires admin.
func (h *Handler) Rename(c *gin.Context) {
	orgID := *middleware.Scope(c)
	var body RenameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	org, err := h.service.Rename(c.Request.Context(), orgID, body.Name)
	switch {
	case errors.Is(err, ErrInvalidName):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrOrganizationNotFound):
		response.NotFound(c, err.Error())
	case err != nil:
		h.logger.Error("rename organization failed", zap.String("org_id", orgID.String()), zap.Error(err))
		response.Internal(c, "failed to rename organization")
	default:
		response.OK(c, org)
	}
}

// ListMembers handles GET /organizations/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	f, st := ParseTeamFilter(c.Request.URL.Query())
	res, err := h.team.Load(c.Request.Context(), middleware.Scope(c), f)
	if err != nil {
		h.logger.Warn("load members failed", zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, listing.NewPage(res, TeamSchema, st))
}

// AddMember handles POST /organizations/:id/members. Requires admin.
func (h *Handler) AddMember(c *gin.Context) {
	orgID := *middleware.Scope(c)
	var body AddMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}
	m, err := h.service.AddMember(c.Request.Context(), orgID, body.Email, body.Role)
	if err != nil {
		h.mutationError(c, "add member", err)
		return
	}
	response.Created(c, m)
}

// ChangeRole handles PATCH /organizations/:id/members/:userId. Requires admin.
func (h *Handler) ChangeRole(c *gin.Context) {
	orgID := *middleware.Scope(c)
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var body ChangeRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "role required")
		return
	}
	role, err := h.service.ChangeRole(c.Request.Context(), orgID, userID, body.Role)
	if err != nil {
		h.mutationError(c, "change role", err)
		return
	}
	response.OK(c, gin.H{"user_id": userID, "role": role})
}

// RemoveMember handles DELETE /organizations/:id/members/:userId. Requires admin.
func (h *Handler) RemoveMember(c *gin.Context) {
	orgID := *middleware.Scope(c)
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.service.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
		h.mutationError(c, "remove member", err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) mutationError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrMemberNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyMember):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidRole):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}
