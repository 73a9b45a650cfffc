package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchant-ops/backend/internal/models"
)

// ErrNotFound is returned when the event does not exist in the organization.
var ErrNotFound = errors.New("event not found")

// Repository reads raw_events scoped through their store's organization.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectEvent = `SELECT e.id, e.created_at, e.platform, e.event_type, COALESCE(e.entity, ''),
		COALESCE(e.external_event_id, ''), e.payload, e.store_id
	FROM raw_events e
	INNER JOIN stores s ON s.id = e.store_id`

// ListByOrg returns the newest events of the organization's stores, capped at limit.
// Payloads are left out; the list view only needs them in the detail dialog.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Event, error) {
	const q = `SELECT e.id, e.created_at, e.platform, e.event_type, COALESCE(e.entity, ''),
		COALESCE(e.external_event_id, ''), e.store_id
		FROM raw_events e
		INNER JOIN stores s ON s.id = e.store_id
		WHERE s.org_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Event, 0, limit)
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Platform, &e.EventType, &e.Entity, &e.ExternalEventID, &e.StoreID); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetByID returns one event with its payload, provided it belongs to the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Event, error) {
	q := selectEvent + ` WHERE e.id = $1 AND s.org_id = $2`
	var e models.Event
	var payload []byte
	err := r.pool.QueryRow(ctx, q, id, orgID).
		Scan(&e.ID, &e.CreatedAt, &e.Platform, &e.EventType, &e.Entity, &e.ExternalEventID, &payload, &e.StoreID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}

// Payloads returns the stored payloads of the given events of the organization, keyed by event id.
// Events without a payload are left out.
func (r *Repository) Payloads(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]json.RawMessage, error) {
	out := make(map[uuid.UUID]json.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	const q = `SELECT e.id, e.payload
		FROM raw_events e
		INNER JOIN stores s ON s.id = e.store_id
		WHERE s.org_id = $1 AND e.id = ANY($2::uuid[]) AND e.payload IS NOT NULL`
	rows, err := r.pool.Query(ctx, q, orgID, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		out[id] = payload
	}
	return out, rows.Err()
}
