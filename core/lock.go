package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrLockHeld = errors.New("lock is held by another writer")

// Locker hands out exclusive, non-blocking locks keyed by string.
type Locker interface {
	// TryLock returns ErrLockHeld if key is already locked. unlock is safe to call more than once.
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}
