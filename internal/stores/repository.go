package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchant-ops/backend/internal/models"
)

var (
	// ErrStoreNotFound is returned when the store does not exist in the organization.
	ErrStoreNotFound = errors.New("store not found")
	// ErrCredentialNotFound is returned when a store has no credential row yet.
	ErrCredentialNotFound = errors.New("credentials not found")
)

const storeColumns = `id, name, platform, auth_status, last_health_check, org_id, created_at`

// Repository handles stores and store_credentials persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stores repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStore(row pgx.Row) (*models.Store, error) {
	var s models.Store
	if err := row.Scan(&s.ID, &s.Name, &s.Platform, &s.AuthStatus, &s.LastHealthCheck, &s.OrgID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Store, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// ListByOrg returns the organization's newest stores, capped at limit.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2`, orgID, limit)
}

// ListAll returns every store, for the scheduled health-check sweep.
func (r *Repository) ListAll(ctx context.Context) ([]models.Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at ASC`)
}

// GetByID returns a store only if it belongs to orgID.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Store, error) {
	s, err := scanStore(r.pool.QueryRow(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1 AND org_id = $2`, id, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	return s, err
}

// UpdateHealth records the outcome of a health check.
func (r *Repository) UpdateHealth(ctx context.Context, id uuid.UUID, authStatus string, checkedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stores SET auth_status = $2, last_health_check = $3 WHERE id = $1`, id, authStatus, checkedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// GetCredential returns the credential row of a store.
func (r *Repository) GetCredential(ctx context.Context, storeID uuid.UUID) (*models.Credential, error) {
	const q = `SELECT id, store_id, credentials, created_at, updated_at FROM store_credentials WHERE store_id = $1`
	var (
		c   models.Credential
		raw []byte
	)
	err := r.pool.QueryRow(ctx, q, storeID).Scan(&c.ID, &c.StoreID, &raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Credentials); err != nil {
			return nil, fmt.Errorf("decode credentials: %w", err)
		}
	}
	return &c, nil
}

// InsertCredential creates the credential row for a store.
func (r *Repository) InsertCredential(ctx context.Context, c *models.Credential) error {
	raw, err := c.CredentialsJSON()
	if err != nil {
		return err
	}
	const q = `INSERT INTO store_credentials (store_id, credentials)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.StoreID, raw).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// UpdateCredential replaces the credential blob of an existing row.
func (r *Repository) UpdateCredential(ctx context.Context, c *models.Credential) error {
	raw, err := c.CredentialsJSON()
	if err != nil {
		return err
	}
	const q = `UPDATE store_credentials SET credentials = $2, updated_at = NOW()
		WHERE store_id = $1
		RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, c.StoreID, raw).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCredentialNotFound
	}
	return err
}
