package workflow

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// Guard admits one export at a time. Acquisition never blocks: a caller
// that finds the guard held simply does not start.
type Guard struct {
	sem *semaphore.Weighted
}

// NewGuard creates an unheld guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// DefaultGuard is shared by every engine that is not given its own, so
// exports triggered from different commands in one process never overlap.
var DefaultGuard = NewGuard()

// TryAcquire takes the guard if it is free. The returned release func is
// safe to call more than once.
func (g *Guard) TryAcquire() (release func(), ok bool) {
	if !g.sem.TryAcquire(1) {
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.sem.Release(1) }) }, true
}
