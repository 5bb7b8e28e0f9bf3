package users

import (
	"time"

	"github.com/portalkota/portalkota/internal/authz"
)

// User represents a managed panel account. Email is immutable after creation.
// CreatedBy records the account that provisioned this one; it scopes an
// admin_unit's management rights over its authors and nothing else.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      authz.Role
	IsActive  bool
	CreatedBy *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subject projects the user into the decision engine's target shape.
func (u *User) Subject() *authz.Subject {
	if u == nil {
		return nil
	}
	return &authz.Subject{ID: u.ID, Role: u.Role, CreatedBy: u.CreatedBy}
}
