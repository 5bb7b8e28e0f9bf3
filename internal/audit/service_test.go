package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubAuditRepo struct {
	entries    []Entry
	gotLimit   int
	gotOffset  int
	gotFilters Filters
	gotCutoff  time.Time
}

func (s *stubAuditRepo) ListEntries(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	s.gotFilters = filters
	s.gotLimit = limit
	s.gotOffset = offset
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[:limit], nil
}

func (s *stubAuditRepo) DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.gotCutoff = cutoff
	var removed int64
	for _, e := range s.entries {
		if e.At.Before(cutoff) {
			removed++
		}
	}
	return removed, nil
}

func makeEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{ActorID: 1, Action: "user.update", Entity: "user", EntityID: "7", At: time.Now()}
	}
	return entries
}

func TestTimelinePagingDefaults(t *testing.T) {
	repo := &stubAuditRepo{entries: makeEntries(5)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Page)
	require.Equal(t, 20, result.PageSize)
	require.False(t, result.HasNext)
	require.Len(t, result.Rows, 5)
	require.Equal(t, 21, repo.gotLimit)
	require.Equal(t, 0, repo.gotOffset)
}

func TestTimelineHasNext(t *testing.T) {
	repo := &stubAuditRepo{entries: makeEntries(21)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.True(t, result.HasNext)
	require.Len(t, result.Rows, 20)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubAuditRepo{entries: makeEntries(2)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{PageSize: 500, Actor: "  1 "})
	require.NoError(t, err)
	require.Equal(t, 50, result.PageSize)
	require.Equal(t, "1", repo.gotFilters.Actor)
}

func TestTimelineWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Timeline(context.Background(), Filters{})
	require.Error(t, err)
}

func TestPruneUsesRetentionCutoff(t *testing.T) {
	old := Entry{ActorID: 1, Action: "user.delete", Entity: "user", EntityID: "3", At: time.Now().Add(-48 * time.Hour)}
	fresh := Entry{ActorID: 1, Action: "user.update", Entity: "user", EntityID: "7", At: time.Now()}
	repo := &stubAuditRepo{entries: []Entry{old, fresh}}
	svc := NewService(repo)

	removed, err := svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.gotCutoff, time.Minute)
}
