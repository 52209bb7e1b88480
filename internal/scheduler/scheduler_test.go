package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())
	err := s.Add("broken", "every tuesday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 0, s.GetStatus()["jobs"])
}

func TestRunNow(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())

	var calls int32
	require.NoError(t, s.Add("count", "@every 1h", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	require.NoError(t, s.Add("fail", "@every 1h", func(context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("count"))
	assert.EqualError(t, s.RunNow("fail"), "boom")
	assert.Error(t, s.RunNow("missing"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, map[string]int{"count": 1, "fail": 1}, s.GetStatus()["runs"])

	s.Remove("fail")
	assert.Equal(t, 1, s.GetStatus()["jobs"])
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler(zap.NewNop().Sugar())

	var calls int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	s.Start()
	assert.Equal(t, true, s.GetStatus()["running"])

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > 0 }, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.Equal(t, false, s.GetStatus()["running"])
}

type fakePruner struct{ calls int }

func (f *fakePruner) Prune() int {
	f.calls++
	return 0
}

func TestSessionSweep(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	signer, err := auth.NewSigner("sweep-secret")
	require.NoError(t, err)

	store := auth.NewMemorySessionStore()
	sessions := auth.NewSessions(store, signer, auth.WithSessionTTL(time.Hour), auth.WithNow(clock))

	sess, _, err := sessions.Create(context.Background(), models.User{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	pruner := &fakePruner{}
	sweep := SessionSweep(sessions, pruner, zap.NewNop().Sugar())

	require.NoError(t, sweep(context.Background()))
	_, err = store.Get(context.Background(), sess.ID)
	require.NoError(t, err, "live session survives")

	now = now.Add(2 * time.Hour)
	require.NoError(t, sweep(context.Background()))
	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.Equal(t, 2, pruner.calls)
}
