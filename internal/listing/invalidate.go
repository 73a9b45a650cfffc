package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invalidator drops cached collections after a successful mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID uuid.UUID, collections ...string) error
}

// Notifier tells open views of an organization that collections changed.
type Notifier interface {
	NotifyInvalidated(orgID uuid.UUID, collections ...string)
}

// CacheInvalidator clears the query cache and then notifies live views.
type CacheInvalidator struct {
	cache    Cache
	notifier Notifier
	logger   *zap.Logger
}

// NewCacheInvalidator creates an invalidator. notifier may be nil.
func NewCacheInvalidator(cache Cache, notifier Notifier, logger *zap.Logger) *CacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{cache: cache, notifier: notifier, logger: logger}
}

// Invalidate implements Invalidator.
func (i *CacheInvalidator) Invalidate(ctx context.Context, orgID uuid.UUID, collections ...string) error {
	if len(collections) == 0 {
		return nil
	}
	if i.cache != nil {
		if err := i.cache.Invalidate(ctx, collections...); err != nil {
			return fmt.Errorf("invalidate %v: %w", collections, err)
		}
	}
	if i.notifier != nil {
		i.notifier.NotifyInvalidated(orgID, collections...)
	}
	i.logger.Debug("collections invalidated", zap.String("org_id", orgID.String()), zap.Strings("collections", collections))
	return nil
}
