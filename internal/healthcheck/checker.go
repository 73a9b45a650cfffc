// Package healthcheck verifies store credentials against their platform and records the
// resulting auth status.
package healthcheck

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/pkg/warehance"
)

// Checker decides a store's auth status. A returned error means the check itself could not
// run and should be retried; a definitive rejection is reported as a status.
type Checker interface {
	Check(ctx context.Context, store models.Store, cred *models.Credential) (string, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, store models.Store, cred *models.Credential) (string, error)

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context, store models.Store, cred *models.Credential) (string, error) {
	return f(ctx, store, cred)
}

// Registry picks a checker by platform.
type Registry struct {
	byPlatform map[string]Checker
	fallback   Checker
}

// NewRegistry creates a registry. Platforms without a checker use CredentialsPresent.
func NewRegistry() *Registry {
	return &Registry{byPlatform: make(map[string]Checker), fallback: CheckerFunc(CredentialsPresent)}
}

// Register sets the checker of a platform.
func (r *Registry) Register(platform string, c Checker) {
	r.byPlatform[platform] = c
}

// For returns the checker of a platform.
func (r *Registry) For(platform string) Checker {
	if c, ok := r.byPlatform[platform]; ok {
		return c
	}
	return r.fallback
}

// CredentialsPresent is the offline check: a store is active while it has any credentials.
func CredentialsPresent(_ context.Context, _ models.Store, cred *models.Credential) (string, error) {
	if cred == nil || len(cred.Credentials) == 0 {
		return models.AuthStatusExpired, nil
	}
	return models.AuthStatusActive, nil
}

// WarehanceChecker pings the Warehance API with the store's api_key.
type WarehanceChecker struct {
	baseURL string
	doer    warehance.Doer
	logger  *zap.Logger
}

// NewWarehanceChecker creates a checker against baseURL.
func NewWarehanceChecker(baseURL string, doer warehance.Doer, logger *zap.Logger) *WarehanceChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarehanceChecker{baseURL: baseURL, doer: doer, logger: logger}
}

// Check implements Checker. Key and permission rejections mark the store expired; rate limits,
// server errors and transport failures are returned for retry.
func (w *WarehanceChecker) Check(ctx context.Context, store models.Store, cred *models.Credential) (string, error) {
	if cred == nil || cred.Credentials["api_key"] == "" {
		return models.AuthStatusExpired, nil
	}
	client := warehance.NewClient(w.baseURL, cred.Credentials["api_key"], w.doer, w.logger)
	err := client.Ping(ctx)
	if err == nil {
		return models.AuthStatusActive, nil
	}
	var werr *warehance.Error
	if errors.As(err, &werr) && werr.Has(warehance.CodeInvalidAPIKey, warehance.CodePermissionDenied) {
		w.logger.Info("warehance rejected store credentials",
			zap.String("store_id", store.ID.String()), zap.String("request_id", werr.RequestID))
		return models.AuthStatusExpired, nil
	}
	return "", err
}
