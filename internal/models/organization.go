package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant; stores and members hang off it.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member roles within an organization.
const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// MemberRoles lists the valid member roles.
var MemberRoles = []string{MemberRoleAdmin, MemberRoleMember}

// Member is an organization_members row joined with the user it points at.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	OrgID    uuid.UUID `json:"org_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}
