package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/models"
)

var (
	// ErrInvalidRole is returned for roles outside admin/member.
	ErrInvalidRole = errors.New("role must be admin or member")
	// ErrInvalidName is returned for empty or overlong organization names.
	ErrInvalidName = errors.New("name must be 1-255 characters")
)

// Store is the persistence the service needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	InsertMember(ctx context.Context, m *models.Member) error
	DeleteMember(ctx context.Context, orgID, userID uuid.UUID) error
	UpdateRole(ctx context.Context, orgID, userID uuid.UUID, role string) error
	Rename(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error)
}

// Service applies team and organization mutations. Each successful call invalidates the
// collections it changed; failures are returned unchanged and nothing is retried.
type Service struct {
	repo        Store
	invalidator listing.Invalidator
	logger      *zap.Logger
}

// NewService creates an organizations service.
func NewService(repo Store, invalidator listing.Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

func validRole(role string) bool {
	for _, r := range models.MemberRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AddMember resolves email to an existing user and adds them with role. An unknown email fails
// with ErrUserNotFound before anything is written.
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, email, role string) (*models.Member, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = models.MemberRoleMember
	}
	if !validRole(role) {
		return nil, ErrInvalidRole
	}
	email = strings.TrimSpace(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	m := &models.Member{
		UserID:   user.ID,
		OrgID:    orgID,
		Role:     role,
		FullName: user.FullName,
		Email:    user.Email,
	}
	if err := s.repo.InsertMember(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("member added", zap.String("org_id", orgID.String()), zap.String("user_id", user.ID.String()), zap.String("role", role))
	s.invalidate(ctx, orgID, listing.CollectionTeamMembers, listing.CollectionOrganizations)
	return m, nil
}

// RemoveMember deletes the (org, user) membership.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if err := s.repo.DeleteMember(ctx, orgID, userID); err != nil {
		return err
	}
	s.logger.Info("member removed", zap.String("org_id", orgID.String()), zap.String("user_id", userID.String()))
	s.invalidate(ctx, orgID, listing.CollectionTeamMembers, listing.CollectionOrganizations)
	return nil
}

// ChangeRole sets the (org, user) membership role and returns the role as stored.
func (s *Service) ChangeRole(ctx context.Context, orgID, userID uuid.UUID, role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !validRole(role) {
		return "", ErrInvalidRole
	}
	if err := s.repo.UpdateRole(ctx, orgID, userID, role); err != nil {
		return "", err
	}
	s.logger.Info("member role changed", zap.String("org_id", orgID.String()), zap.String("user_id", userID.String()), zap.String("role", role))
	s.invalidate(ctx, orgID, listing.CollectionTeamMembers)
	return role, nil
}

// Rename updates the organization name.
func (s *Service) Rename(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if len(name) < 1 || len(name) > 255 {
		return nil, ErrInvalidName
	}
	org, err := s.repo.Rename(ctx, orgID, name)
	if err != nil {
		return nil, fmt.Errorf("rename organization: %w", err)
	}
	s.logger.Info("organization renamed", zap.String("org_id", orgID.String()))
	s.invalidate(ctx, orgID, listing.CollectionOrganizations)
	return org, nil
}

func (s *Service) invalidate(ctx context.Context, orgID uuid.UUID, collections ...string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, orgID, collections...); err != nil {
		s.logger.Warn("invalidate failed", zap.String("org_id", orgID.String()), zap.Strings("collections", collections), zap.Error(err))
	}
}
