package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a dashboard account. Accounts are created by the hosted auth provider.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}
