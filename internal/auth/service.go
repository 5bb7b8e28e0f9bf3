package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/shared"
)

// identityTimeout bounds the reads that build a session identity. A slow or
// failing credential store denies access, it never grants it.
const identityTimeout = 3 * time.Second

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// BuildIdentity materializes the decision engine's identity for a user:
// profile and grant set are fetched concurrently and combined into a single
// snapshot. Any failure surfaces as ErrUpstreamUnavailable so the caller
// denies rather than guessing.
func (s *Service) BuildIdentity(ctx context.Context, userID int64) (authz.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, identityTimeout)
	defer cancel()

	var (
		profile *User
		codes   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.repo.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		codes, err = s.repo.ListGrantCodes(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return authz.Identity{}, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	if !profile.IsActive {
		return authz.Identity{}, shared.ErrPermissionDenied
	}
	role, ok := authz.ParseRole(string(profile.Role))
	if !ok {
		return authz.Identity{}, shared.ErrPermissionDenied
	}
	return authz.Identity{UserID: userID, Role: role, Pages: authz.ParsePageSet(codes)}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PurgeExpiredSessions drops session rows past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}
