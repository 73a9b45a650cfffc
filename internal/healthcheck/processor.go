package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/stores"
	"github.com/merchant-ops/backend/pkg/queue"
)

// sweepRequester marks jobs scheduled by the periodic sweep.
const sweepRequester = "sweep"

// Store is the persistence the processor needs.
type Store interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Store, error)
	GetCredential(ctx context.Context, storeID uuid.UUID) (*models.Credential, error)
	UpdateHealth(ctx context.Context, id uuid.UUID, authStatus string, checkedAt time.Time) error
	ListAll(ctx context.Context) ([]models.Store, error)
}

// Queue is the job queue the processor consumes and feeds.
type Queue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	EnqueueHealthCheck(ctx context.Context, payload queue.HealthCheckPayload) (*queue.Job, error)
}

// Processor runs store health-check jobs.
type Processor struct {
	store       Store
	checkers    *Registry
	invalidator listing.Invalidator
	queue       Queue
	logger      *zap.Logger
	now         func() time.Time
	backoff     time.Duration
}

// NewProcessor creates a health-check processor.
func NewProcessor(store Store, checkers *Registry, invalidator listing.Invalidator, q Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:       store,
		checkers:    checkers,
		invalidator: invalidator,
		queue:       q,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		backoff:     queue.RetryBackoff,
	}
}

// Process executes one health-check job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.HealthCheck()
	if err != nil {
		return err
	}
	st, err := p.store.GetByID(ctx, payload.OrgID, payload.StoreID)
	if errors.Is(err, stores.ErrStoreNotFound) {
		p.logger.Info("store gone, dropping health check", zap.String("store_id", payload.StoreID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	cred, err := p.store.GetCredential(ctx, st.ID)
	if errors.Is(err, stores.ErrCredentialNotFound) {
		cred = nil
	} else if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	status, err := p.checkers.For(st.Platform).Check(ctx, *st, cred)
	if err != nil {
		return fmt.Errorf("check %s store: %w", st.Platform, err)
	}
	if err := p.store.UpdateHealth(ctx, st.ID, status, p.now()); err != nil {
		return fmt.Errorf("update health: %w", err)
	}

	p.logger.Info("store health checked",
		zap.String("store_id", st.ID.String()),
		zap.String("platform", st.Platform),
		zap.String("auth_status", status),
		zap.String("requested_by", payload.Requested))
	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx, st.OrgID, listing.CollectionStores); err != nil {
			p.logger.Warn("invalidate stores failed", zap.Error(err))
		}
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("health-check worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

// Sweep enqueues a check of every store and returns how many were queued.
func (p *Processor) Sweep(ctx context.Context) (int, error) {
	all, err := p.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stores: %w", err)
	}
	queued := 0
	for _, st := range all {
		if _, err := p.queue.EnqueueHealthCheck(ctx, queue.HealthCheckPayload{
			StoreID:   st.ID,
			OrgID:     st.OrgID,
			Requested: sweepRequester,
		}); err != nil {
			return queued, fmt.Errorf("enqueue %s: %w", st.ID, err)
		}
		queued++
	}
	return queued, nil
}

// RunSweeps calls Sweep every interval until ctx ends.
func (p *Processor) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Sweep(ctx)
			if err != nil {
				p.logger.Warn("health-check sweep failed", zap.Int("queued", n), zap.Error(err))
				continue
			}
			p.logger.Info("health-check sweep queued", zap.Int("stores", n))
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
