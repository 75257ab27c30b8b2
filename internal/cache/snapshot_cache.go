package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// SnapshotCache keeps frozen exam papers close to the attempt path. Published
// snapshots never change, so entries only go away on TTL or exam deletion.
type SnapshotCache struct {
	cache  CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewSnapshotCache(cache CacheService, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	return &SnapshotCache{cache: cache, ttl: ttl, logger: logger}
}

func snapshotKey(examID uint) string {
	return fmt.Sprintf("exam:%d:snapshot", examID)
}

// Get returns the cached snapshot; ok is false on a miss or any cache failure.
func (s *SnapshotCache) Get(ctx context.Context, examID uint) ([]models.ExamQuestion, bool) {
	if s == nil {
		return nil, false
	}
	var questions []models.ExamQuestion
	err := s.cache.Get(ctx, snapshotKey(examID), &questions)
	switch {
	case err == nil:
		restoreCorrectOptions(questions)
		return questions, true
	case errors.Is(err, ErrCacheNotFound), errors.Is(err, ErrCacheNotAvailable):
	default:
		s.logger.Warn("Snapshot cache read failed", "exam_id", examID, "error", err)
	}
	return nil, false
}

func (s *SnapshotCache) Put(ctx context.Context, examID uint, questions []models.ExamQuestion) {
	if s == nil {
		return
	}
	if err := s.cache.Set(ctx, snapshotKey(examID), questions, s.ttl); err != nil {
		s.logger.Warn("Snapshot cache write failed", "exam_id", examID, "error", err)
	}
}

func (s *SnapshotCache) Invalidate(ctx context.Context, examID uint) {
	if s == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotKey(examID)); err != nil {
		s.logger.Warn("Snapshot cache invalidate failed", "exam_id", examID, "error", err)
	}
}

// CorrectOptionID is not serialized, so it is recovered from the option flags.
func restoreCorrectOptions(questions []models.ExamQuestion) {
	for i := range questions {
		for _, o := range questions[i].Options {
			if o.IsCorrect {
				questions[i].CorrectOptionID = o.ID
				break
			}
		}
	}
}
