package locksvc

import (
	"context"
	"sync"

	"github.com/trezcool/gradebook/core"
)

// MemoryLocker serializes writers of a single process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ core.Locker = (*MemoryLocker)(nil) // interface compliance check

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, core.ErrLockHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
