package users

import (
	"context"
	"errors"

	legacypgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/platform/db"
	"github.com/portalkota/portalkota/internal/shared"
)

const userColumns = `id, email, name, role, is_active, created_by, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListAll returns every account.
func (r *Repository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListCreatedBy returns the accounts provisioned by the given creator.
func (r *Repository) ListCreatedBy(ctx context.Context, creatorID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE created_by = $1 ORDER BY id`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// CreateUser inserts a new account.
func (r *Repository) CreateUser(ctx context.Context, rec NewUserRecord) (*User, error) {
	createdBy := pgtype.Int8{}
	if rec.CreatedBy != nil {
		createdBy = pgtype.Int8{Int64: *rec.CreatedBy, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, role, is_active, created_by, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5, NOW(), NOW())
		RETURNING `+userColumns,
		rec.Email, rec.Name, string(rec.Role), createdBy, rec.PasswordHash)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the given fields and returns the fresh row.
func (r *Repository) UpdateUser(ctx context.Context, id int64, rec UpdateUserRecord) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			is_active = COALESCE($3, is_active),
			role = COALESCE($4, role),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, rec.Name, rec.IsActive, roleText(rec.Role))
	return scanUser(row)
}

// UpdatePasswordHash stores a new password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUser removes the account and its grants.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM permission_grants WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListGrants returns the granted page codes for a user in lexical order.
func (r *Repository) ListGrants(ctx context.Context, userID int64) ([]authz.Page, error) {
	rows, err := r.pool.Query(ctx, `SELECT page FROM permission_grants WHERE user_id = $1 ORDER BY page`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pages []authz.Page
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		if page, ok := authz.ParsePage(code); ok {
			pages = append(pages, page)
		}
	}
	return pages, rows.Err()
}

// ReplaceGrants swaps the stored grant set in one transaction. The unique
// (user_id, page) constraint backs the at-most-one-grant invariant.
func (r *Repository) ReplaceGrants(ctx context.Context, userID int64, pages []authz.Page) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM permission_grants WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, page := range pages {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permission_grants (user_id, page, created_at) VALUES ($1, $2, NOW())`,
				userID, string(page)); err != nil {
				if isUniqueViolation(err) {
					continue
				}
				return err
			}
		}
		return nil
	})
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user      User
		role      string
		createdBy pgtype.Int8
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &createdBy, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = authz.Role(role)
	if createdBy.Valid {
		v := createdBy.Int64
		user.CreatedBy = &v
	}
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var (
			user      User
			role      string
			createdBy pgtype.Int8
		)
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &createdBy, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		user.Role = authz.Role(role)
		if createdBy.Valid {
			v := createdBy.Int64
			user.CreatedBy = &v
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func roleText(role *authz.Role) *string {
	if role == nil {
		return nil
	}
	s := string(*role)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// Callers migrating from pgx v4 still surface the legacy error type.
	var legacyErr *legacypgconn.PgError
	return errors.As(err, &legacyErr) && legacyErr.Code == "23505"
}
