package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

var base = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func windowed() *models.Exam {
	return &models.Exam{
		Status:          models.ExamPublished,
		DurationMinutes: 60,
		StartAt:         at(0),
		EndAt:           at(2 * time.Hour),
	}
}

func attempt(status models.AttemptStatus, deadline time.Duration) *models.Attempt {
	return &models.Attempt{Status: status, StartedAt: at(0), Deadline: at(deadline)}
}

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name    string
		exam    *models.Exam
		attempt *models.Attempt
		now     time.Time
		want    Status
	}{
		{"before window", windowed(), nil, base.Add(-time.Minute), StatusUpcoming},
		{"inside window", windowed(), nil, base.Add(time.Minute), StatusAvailable},
		{"window start is inclusive", windowed(), nil, base, StatusAvailable},
		{"after window without attempt", windowed(), nil, base.Add(3 * time.Hour), StatusExpired},
		{"no window", &models.Exam{}, nil, base, StatusAvailable},
		{"in progress", windowed(), attempt(models.AttemptInProgress, time.Hour), base.Add(30 * time.Minute), StatusInProgress},
		{"in progress past deadline", windowed(), attempt(models.AttemptInProgress, time.Hour), base.Add(61 * time.Minute), StatusExpired},
		{"submitted beats closed window", windowed(), attempt(models.AttemptSubmitted, time.Hour), base.Add(3 * time.Hour), StatusCompleted},
		{"expired attempt", windowed(), attempt(models.AttemptExpired, time.Hour), base.Add(30 * time.Minute), StatusExpired},
		{"in progress after window end keeps running", windowed(), attempt(models.AttemptInProgress, 150*time.Minute), base.Add(130 * time.Minute), StatusInProgress},
		{"not started attempt row uses window", windowed(), &models.Attempt{Status: models.AttemptNotStarted}, base.Add(-time.Minute), StatusUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(tt.exam, tt.attempt, tt.now))
		})
	}
}

func TestInWindow(t *testing.T) {
	e := windowed()

	assert.False(t, InWindow(e, base.Add(-time.Second)))
	assert.True(t, InWindow(e, base))
	assert.True(t, InWindow(e, base.Add(2*time.Hour)))
	assert.False(t, InWindow(e, base.Add(2*time.Hour+time.Second)))
}

func TestSecondsRemaining(t *testing.T) {
	a := attempt(models.AttemptInProgress, time.Hour)

	assert.Equal(t, int64(1800), SecondsRemaining(a, base.Add(30*time.Minute)))
	assert.Equal(t, int64(0), SecondsRemaining(a, base.Add(2*time.Hour)))
	assert.Equal(t, int64(0), SecondsRemaining(nil, base))
}
