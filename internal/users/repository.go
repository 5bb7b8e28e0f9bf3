package users

import (
	"context"
	"errors"

	"github.com/portalkota/portalkota/internal/authz"
)

// ErrDuplicateEmail indicates the email address is already registered.
var ErrDuplicateEmail = errors.New("users: email already registered")

// NewUserRecord carries the fields persisted when creating an account.
type NewUserRecord struct {
	Email        string
	Name         string
	Role         authz.Role
	PasswordHash string
	CreatedBy    *int64
}

// UpdateUserRecord carries the mutable profile fields. Nil pointers leave the
// stored value untouched.
type UpdateUserRecord struct {
	Name     *string
	IsActive *bool
	Role     *authz.Role
}

// RepositoryPort defines data access methods for users and their grants.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListAll(ctx context.Context) ([]User, error)
	ListCreatedBy(ctx context.Context, creatorID int64) ([]User, error)
	CreateUser(ctx context.Context, rec NewUserRecord) (*User, error)
	UpdateUser(ctx context.Context, id int64, rec UpdateUserRecord) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	DeleteUser(ctx context.Context, id int64) error
	ListGrants(ctx context.Context, userID int64) ([]authz.Page, error)
	ReplaceGrants(ctx context.Context, userID int64, pages []authz.Page) error
}
