package auth

import (
	"time"

	"github.com/portalkota/portalkota/internal/authz"
)

// User represents an authenticated account as the credential store sees it.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
