package alerts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchant-ops/backend/internal/models"
)

// Repository reads alerts scoped through their store's organization.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an alerts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByOrg returns the newest alerts for the organization's stores, capped at limit.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Alert, error) {
	const q = `SELECT a.id, a.created_at, a.severity, a.alert_type, a.message, COALESCE(a.platform, s.platform),
		a.resolved, a.related_entity_id, a.store_id
		FROM alerts a
		INNER JOIN stores s ON s.id = a.store_id
		WHERE s.org_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Alert, 0, limit)
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Severity, &a.AlertType, &a.Message, &a.Platform,
			&a.Resolved, &a.RelatedEntityID, &a.StoreID); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
