// Package lock serializes work on a single attempt.
package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock. Calling it more than once is safe.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// AttemptKey is the lock key for one attempt.
func AttemptKey(attemptID uint) string {
	return fmt.Sprintf("attempt:%d", attemptID)
}
