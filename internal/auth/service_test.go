package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portalkota/portalkota/internal/auth"
	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/shared"
)

type failingRepo struct {
	stubRepo
	err error
}

func (f *failingRepo) GetProfile(ctx context.Context, userID int64) (*auth.User, error) {
	return nil, f.err
}

func TestBuildIdentitySnapshot(t *testing.T) {
	repo := &stubRepo{
		user: &auth.User{
			ID: 10, Email: "admin@kota.go.id", Role: authz.RoleAdminUnit, IsActive: true,
		},
		codes: []string{"berita", "berita", "agenda_kota", "galeri"},
	}
	svc := auth.NewService(repo)

	id, err := svc.BuildIdentity(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), id.UserID)
	require.Equal(t, authz.RoleAdminUnit, id.Role)
	// Duplicates collapse, unknown codes drop.
	require.Equal(t, []authz.Page{authz.PageCityAgenda, authz.PageNews}, id.Pages.Sorted())
}

func TestBuildIdentityUpstreamFailureDenies(t *testing.T) {
	svc := auth.NewService(&failingRepo{err: errors.New("connection refused")})

	_, err := svc.BuildIdentity(context.Background(), 10)
	require.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}

func TestBuildIdentityInactiveDenied(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 10, Role: authz.RoleAuthor, IsActive: false}}
	svc := auth.NewService(repo)

	_, err := svc.BuildIdentity(context.Background(), 10)
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestPurgeExpiredSessions(t *testing.T) {
	svc := auth.NewService(&stubRepo{})
	n, err := svc.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
