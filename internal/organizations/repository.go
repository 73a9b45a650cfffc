package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchant-ops/backend/internal/models"
)

var (
	// ErrUserNotFound is returned when no account matches the email being added.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyMember is returned when the user already belongs to the organization.
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrMemberNotFound is returned when the (org, user) membership does not exist.
	ErrMemberNotFound = errors.New("member not found")
	// ErrOrganizationNotFound is returned when renaming an unknown organization.
	ErrOrganizationNotFound = errors.New("organization not found")
)

const uniqueViolation = "23505"

// Repository handles organizations, organization_members and user lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MemberRole returns the user's role in the organization, or "" when not a member.
func (r *Repository) MemberRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	const q = `SELECT role FROM organization_members WHERE org_id = $1 AND user_id = $2`
	var role string
	err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// ListForUser returns the organizations the user belongs to, newest first (organization switcher).
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Organization, error) {
	const q = `SELECT o.id, o.name, o.created_at
		FROM organizations o
		INNER JOIN organization_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Rename updates an organization's name.
func (r *Repository) Rename(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error) {
	const q = `UPDATE organizations SET name = $2 WHERE id = $1 RETURNING id, name, created_at`
	var o models.Organization
	err := r.pool.QueryRow(ctx, q, orgID, name).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListMembers returns the organization's members joined with their user rows, newest first.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Member, error) {
	const q = `SELECT m.user_id, m.org_id, m.role, m.joined_at, COALESCE(u.full_name, ''), u.email
		FROM organization_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY m.joined_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.OrgID, &m.Role, &m.JoinedAt, &m.FullName, &m.Email); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetUserByEmail looks a user up by email, ignoring case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, COALESCE(full_name, ''), created_at FROM users WHERE lower(email) = lower($1)`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertMember adds a membership row. JoinedAt is set from the database.
func (r *Repository) InsertMember(ctx context.Context, m *models.Member) error {
	const q = `INSERT INTO organization_members (org_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, q, m.OrgID, m.UserID, m.Role, joined).Scan(&m.JoinedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyMember
	}
	return err
}

// DeleteMember removes a membership by its composite key.
func (r *Repository) DeleteMember(ctx context.Context, orgID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organization_members WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// UpdateRole changes a member's role by its composite key.
func (r *Repository) UpdateRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE organization_members SET role = $3 WHERE org_id = $1 AND user_id = $2`, orgID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}
