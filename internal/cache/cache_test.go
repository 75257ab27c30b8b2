package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "cbt:", discardLogger()), mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.True(t, mr.Exists("cbt:k"))

	var got map[string]int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["a"])

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheNotFound)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	for _, k := range []string{"exam:1:snapshot", "exam:2:snapshot", "other"} {
		require.NoError(t, c.Set(ctx, k, 1, 0))
	}

	require.NoError(t, c.DeletePattern(ctx, "exam:*"))
	assert.False(t, mr.Exists("cbt:exam:1:snapshot"))
	assert.False(t, mr.Exists("cbt:exam:2:snapshot"))
	assert.True(t, mr.Exists("cbt:other"))
}

func TestRedisCache_NilClient(t *testing.T) {
	c := NewRedisCache(nil, "cbt:", discardLogger())
	var v int

	assert.NoError(t, c.Set(context.Background(), "k", 1, 0))
	assert.ErrorIs(t, c.Get(context.Background(), "k", &v), ErrCacheNotAvailable)
	assert.NoError(t, c.Delete(context.Background(), "k"))
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	snapshots := NewSnapshotCache(c, time.Hour, discardLogger())

	_, ok := snapshots.Get(ctx, 3)
	assert.False(t, ok)

	paper := []models.ExamQuestion{{
		ExamID:          3,
		QuestionID:      11,
		Text:            "2 + 2?",
		Marks:           2.5,
		CorrectOptionID: 111,
		Options:         datatypes.JSONSlice[models.SnapshotOption]{{ID: 111, Text: "4", IsCorrect: true}, {ID: 112, Text: "5"}},
	}}
	snapshots.Put(ctx, 3, paper)

	got, ok := snapshots.Get(ctx, 3)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 2.5, got[0].Marks)
	assert.Equal(t, "4", got[0].Options[0].Text)
	assert.Equal(t, uint(111), got[0].CorrectOptionID)

	mr.FastForward(2 * time.Hour)
	_, ok = snapshots.Get(ctx, 3)
	assert.False(t, ok)
}

func TestSnapshotCache_Nil(t *testing.T) {
	var s *SnapshotCache

	_, ok := s.Get(context.Background(), 1)
	assert.False(t, ok)
	s.Put(context.Background(), 1, nil)
	s.Invalidate(context.Background(), 1)
}
