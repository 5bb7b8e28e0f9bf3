package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/shared"
)

// ErrUnknownPage indicates a grant request carried a page code outside the
// closed set.
var ErrUnknownPage = errors.New("users: unknown page code")

// accessTimeout bounds every access-relevant read. A timed-out read is a
// denial, never a grant.
const accessTimeout = 3 * time.Second

// AuditRecorder persists audit trail entries for user and grant mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CreateInput carries the fields for provisioning a subordinate account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     authz.Role
	Pages    []authz.Page
}

// UpdateInput carries the mutable fields of an account. Email is immutable
// and deliberately absent.
type UpdateInput struct {
	Name     *string
	IsActive *bool
	Role     *authz.Role
}

// Service enforces the access decision engine over user management. Every
// operation re-evaluates the engine's predicates against fresh rows; the HTTP
// guards upstream are advisory only.
type Service struct {
	repo     RepositoryPort
	audit    AuditRecorder
	collator *collate.Collator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		collator: collate.New(language.Indonesian, collate.IgnoreCase),
	}
}

// List returns the accounts visible to the actor: superadmin sees everyone,
// an admin_unit sees itself plus the authors it created, an author sees only
// itself. Results are ordered by display name.
func (s *Service) List(ctx context.Context, actor authz.Identity, page, perPage int) ([]User, shared.Pagination, error) {
	if !actor.Valid() {
		return nil, shared.Pagination{}, shared.ErrAuthenticationRequired
	}
	ctx, cancel := context.WithTimeout(ctx, accessTimeout)
	defer cancel()

	var (
		visible []User
		err     error
	)
	switch actor.Role {
	case authz.RoleSuperadmin:
		visible, err = s.repo.ListAll(ctx)
	case authz.RoleAdminUnit:
		visible, err = s.repo.ListCreatedBy(ctx, actor.UserID)
		if err == nil {
			if self, selfErr := s.repo.GetUser(ctx, actor.UserID); selfErr == nil {
				visible = append([]User{*self}, visible...)
			}
		}
	default:
		self, selfErr := s.repo.GetUser(ctx, actor.UserID)
		if selfErr == nil {
			visible = []User{*self}
		}
		err = selfErr
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.Pagination{}, shared.ErrPermissionDenied
		}
		return nil, shared.Pagination{}, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return s.collator.CompareString(visible[i].Name, visible[j].Name) < 0
	})

	pagination := shared.NewPagination(page, perPage, len(visible))
	start := (pagination.Page - 1) * pagination.PerPage
	if start >= len(visible) {
		return []User{}, pagination, nil
	}
	end := start + pagination.PerPage
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end], pagination, nil
}

// Get returns a user together with the actor's rights over it. A row the
// actor may not view is reported as a denial, indistinguishable from a row
// that does not exist.
func (s *Service) Get(ctx context.Context, actor authz.Identity, id int64) (*User, authz.Rights, error) {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return nil, authz.Rights{}, err
	}
	rights := authz.ManageRights(actor, target.Subject())
	if !rights.View {
		return nil, authz.Rights{}, shared.ErrPermissionDenied
	}
	return target, rights, nil
}

// Create provisions an account one role level down from the actor, with the
// requested grants. Grants must come from the actor's assignable category;
// for an admin_unit they must additionally be pages it holds itself.
func (s *Service) Create(ctx context.Context, actor authz.Identity, in CreateInput) (*User, error) {
	if !actor.Valid() {
		return nil, shared.ErrAuthenticationRequired
	}
	if !authz.CanCreateRole(actor.Role, in.Role) {
		return nil, shared.ErrPermissionDenied
	}
	pages, err := s.delegablePages(actor, in.Role, in.Pages)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	createdBy := actor.UserID
	user, err := s.repo.CreateUser(ctx, NewUserRecord{
		Email:        in.Email,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: string(hash),
		CreatedBy:    &createdBy,
	})
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		if err := s.repo.ReplaceGrants(ctx, user.ID, pages); err != nil {
			return nil, err
		}
	}
	s.record(ctx, actor, "user.create", user.ID, map[string]any{
		"role":  string(in.Role),
		"pages": pageStrings(pages),
	})
	return user, nil
}

// Update applies profile changes within the actor's rights. Role changes are
// restricted to the roles the actor could create in the first place, so an
// admin_unit can never promote an author.
func (s *Service) Update(ctx context.Context, actor authz.Identity, id int64, in UpdateInput) (*User, error) {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rights := authz.ManageRights(actor, target.Subject())

	if in.Name != nil && !rights.EditProfile {
		return nil, shared.ErrPermissionDenied
	}
	// Deactivation is a management action: it is never applied to yourself.
	if in.IsActive != nil && (!rights.EditRole || actor.UserID == id) {
		return nil, shared.ErrPermissionDenied
	}
	if in.Role != nil {
		if !rights.EditRole {
			return nil, shared.ErrPermissionDenied
		}
		if !authz.CanCreateRole(actor.Role, *in.Role) && *in.Role != target.Role {
			return nil, shared.ErrPermissionDenied
		}
	}

	updated, err := s.repo.UpdateUser(ctx, id, UpdateUserRecord{Name: in.Name, IsActive: in.IsActive, Role: in.Role})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrPermissionDenied
		}
		return nil, err
	}
	s.record(ctx, actor, "user.update", id, nil)
	return updated, nil
}

// Delete removes an account the actor manages. Self-deletion is refused
// unconditionally.
func (s *Service) Delete(ctx context.Context, actor authz.Identity, id int64) error {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return err
	}
	if !authz.ManageRights(actor, target.Subject()).Delete {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrPermissionDenied
		}
		return err
	}
	s.record(ctx, actor, "user.delete", id, map[string]any{"role": string(target.Role)})
	return nil
}

// ResetPassword stores a fresh bcrypt hash for the target account.
func (s *Service) ResetPassword(ctx context.Context, actor authz.Identity, id int64, password string) error {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return err
	}
	if !authz.ManageRights(actor, target.Subject()).ResetPassword {
		return shared.ErrPermissionDenied
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, string(hash)); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrPermissionDenied
		}
		return err
	}
	s.record(ctx, actor, "user.reset_password", id, nil)
	return nil
}

// Grants returns the stored grant set of a user the actor may view, sorted.
func (s *Service) Grants(ctx context.Context, actor authz.Identity, id int64) ([]authz.Page, error) {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.ManageRights(actor, target.Subject()).View {
		return nil, shared.ErrPermissionDenied
	}
	if target.Role == authz.RoleSuperadmin {
		// Superadmin access is computed; there are no rows to report.
		return []authz.Page{}, nil
	}
	pages, err := s.repo.ListGrants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	return authz.NewPageSet(pages...).Sorted(), nil
}

// ReplaceGrants swaps the target's grant set wholesale. Duplicates collapse,
// unknown codes are rejected, superadmin targets are refused outright since
// their access is computed and never stored.
func (s *Service) ReplaceGrants(ctx context.Context, actor authz.Identity, id int64, pages []authz.Page) ([]authz.Page, error) {
	target, err := s.fetchTarget(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if target.Role == authz.RoleSuperadmin {
		return nil, shared.ErrPermissionDenied
	}
	if !authz.ManageRights(actor, target.Subject()).EditGrants {
		return nil, shared.ErrPermissionDenied
	}
	deduped, err := s.delegablePages(actor, target.Role, pages)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceGrants(ctx, id, deduped); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "grants.replace", id, map[string]any{"pages": pageStrings(deduped)})
	return deduped, nil
}

// fetchTarget loads the target row under the access timeout. Both a missing
// row and an upstream failure surface as a denial.
func (s *Service) fetchTarget(ctx context.Context, actor authz.Identity, id int64) (*User, error) {
	if !actor.Valid() {
		return nil, shared.ErrAuthenticationRequired
	}
	if id <= 0 {
		return nil, shared.ErrPermissionDenied
	}
	ctx, cancel := context.WithTimeout(ctx, accessTimeout)
	defer cancel()

	target, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrPermissionDenied
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	return target, nil
}

// delegablePages validates and dedups a requested grant set against what the
// actor may hand down to targetRole. The user-management page is silently
// dropped for admin_unit targets: their access to it is hardcoded, never
// stored.
func (s *Service) delegablePages(actor authz.Identity, targetRole authz.Role, pages []authz.Page) ([]authz.Page, error) {
	for _, p := range pages {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPage, string(p))
		}
	}
	category, ok := authz.AssignableCategory(actor.Role)
	if !ok {
		if len(pages) == 0 {
			return nil, nil
		}
		return nil, shared.ErrPermissionDenied
	}
	allowed := authz.NewPageSet(authz.CategoryPages(category)...)

	deduped := authz.NewPageSet(pages...)
	result := make([]authz.Page, 0, len(deduped))
	for _, p := range deduped.Sorted() {
		if targetRole == authz.RoleAdminUnit && p == authz.PageUserManagement {
			continue
		}
		if !allowed.Has(p) {
			return nil, shared.ErrPermissionDenied
		}
		// An admin_unit only delegates pages it holds itself.
		if actor.Role == authz.RoleAdminUnit && !actor.Pages.Has(p) {
			return nil, shared.ErrPermissionDenied
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, actor authz.Identity, action string, targetID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
		Meta:     meta,
	})
}

func pageStrings(pages []authz.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = string(p)
	}
	return out
}
