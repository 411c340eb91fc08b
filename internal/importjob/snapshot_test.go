package importjob

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshotStore(t *testing.T) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSnapshotStore(client, "import:job:", time.Hour), mr
}

func TestRedisSnapshotStore_SaveLoad(t *testing.T) {
	store, mr := newTestSnapshotStore(t)
	ctx := context.Background()

	finished := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{
		ID:         "job-1",
		Source:     "search",
		Status:     StatusCompleted,
		Progress:   100,
		Message:    "done",
		Result:     &Result{Saved: 3, Skipped: 1, Malformed: 2},
		CreatedAt:  finished.Add(-time.Minute),
		UpdatedAt:  finished,
		FinishedAt: &finished,
	}
	require.NoError(t, store.Save(ctx, job))

	assert.True(t, mr.Exists("import:job:job-1"))
	assert.Equal(t, time.Hour, mr.TTL("import:job:job-1"))

	got, found, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, *job.Result, *got.Result)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestRedisSnapshotStore_LoadMissing(t *testing.T) {
	store, _ := newTestSnapshotStore(t)

	_, found, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSnapshotStore_Expiry(t *testing.T) {
	store, mr := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Job{ID: "job-2", Status: StatusError}))
	mr.FastForward(2 * time.Hour)

	_, found, err := store.Load(ctx, "job-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSnapshotStore_CorruptValue(t *testing.T) {
	store, mr := newTestSnapshotStore(t)
	require.NoError(t, mr.Set("import:job:bad", "{"))

	_, _, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
}
