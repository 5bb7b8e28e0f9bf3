package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubPruner struct {
	removed      int64
	err          error
	gotRetention time.Duration
}

func (s *stubPruner) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	s.gotRetention = retention
	return s.removed, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleSessionsPurgeTask(t *testing.T) {
	purger := &stubPurger{removed: 3}
	handler := HandleSessionsPurgeTask(purger, nil, testLogger())

	err := handler(context.Background(), NewSessionsPurgeTask())
	require.NoError(t, err)
	require.Equal(t, 1, purger.calls)
}

func TestHandleSessionsPurgeTaskPropagatesError(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	handler := HandleSessionsPurgeTask(purger, nil, testLogger())

	err := handler(context.Background(), NewSessionsPurgeTask())
	require.Error(t, err)
}

func TestHandleAuditPruneTask(t *testing.T) {
	pruner := &stubPruner{removed: 10}
	handler := HandleAuditPruneTask(pruner, 30*24*time.Hour, nil, testLogger())

	err := handler(context.Background(), NewAuditPruneTask())
	require.NoError(t, err)
	require.Equal(t, 30*24*time.Hour, pruner.gotRetention)
}
