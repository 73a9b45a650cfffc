package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/queue"
)

// Store is the persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Store, error)
	GetCredential(ctx context.Context, storeID uuid.UUID) (*models.Credential, error)
	InsertCredential(ctx context.Context, c *models.Credential) error
	UpdateCredential(ctx context.Context, c *models.Credential) error
}

// Enqueuer schedules health-check jobs for the worker.
type Enqueuer interface {
	EnqueueHealthCheck(ctx context.Context, payload queue.HealthCheckPayload) (*queue.Job, error)
}

// Service applies store mutations and invalidates the stores collection on success.
type Service struct {
	repo        Store
	invalidator listing.Invalidator
	queue       Enqueuer
	logger      *zap.Logger
}

// NewService creates a stores service. q may be nil when the worker queue is unavailable.
func NewService(repo Store, invalidator listing.Invalidator, q Enqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, invalidator: invalidator, queue: q, logger: logger}
}

// Credentials returns the store's credential record.
func (s *Service) Credentials(ctx context.Context, orgID, storeID uuid.UUID) (*models.Credential, error) {
	if _, err := s.repo.GetByID(ctx, orgID, storeID); err != nil {
		return nil, err
	}
	return s.repo.GetCredential(ctx, storeID)
}

// SaveCredentials updates the store's credential row when one exists, otherwise inserts it.
func (s *Service) SaveCredentials(ctx context.Context, orgID, storeID uuid.UUID, values map[string]string) (*models.Credential, error) {
	if _, err := s.repo.GetByID(ctx, orgID, storeID); err != nil {
		return nil, err
	}
	cred := &models.Credential{StoreID: storeID, Credentials: values}

	_, err := s.repo.GetCredential(ctx, storeID)
	switch {
	case err == nil:
		err = s.repo.UpdateCredential(ctx, cred)
	case errors.Is(err, ErrCredentialNotFound):
		err = s.repo.InsertCredential(ctx, cred)
	}
	if err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	s.logger.Info("store credentials saved", zap.String("org_id", orgID.String()), zap.String("store_id", storeID.String()))
	s.invalidate(ctx, orgID)
	return cred, nil
}

// RequestHealthCheck queues a health check of one store.
func (s *Service) RequestHealthCheck(ctx context.Context, orgID, storeID, userID uuid.UUID) (*queue.Job, error) {
	if s.queue == nil {
		return nil, errors.New("health-check queue not configured")
	}
	if _, err := s.repo.GetByID(ctx, orgID, storeID); err != nil {
		return nil, err
	}
	return s.queue.EnqueueHealthCheck(ctx, queue.HealthCheckPayload{
		StoreID:   storeID,
		OrgID:     orgID,
		Requested: userID.String(),
	})
}

func (s *Service) invalidate(ctx context.Context, orgID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, orgID, listing.CollectionStores); err != nil {
		s.logger.Warn("invalidate stores failed", zap.String("org_id", orgID.String()), zap.Error(err))
	}
}
