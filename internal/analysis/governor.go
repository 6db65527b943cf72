package analysis

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultRemoteConcurrency bounds simultaneous remote reasoning calls
// to stay under the service's rate limit.
const DefaultRemoteConcurrency = 5

// Governor is the counting semaphore every remote call passes through.
// It is the only serialization point in a run; local-tier calls never
// touch it.
type Governor struct {
	sem *semaphore.Weighted
}

func NewGovernor(slots int) *Governor {
	if slots <= 0 {
		slots = DefaultRemoteConcurrency
	}
	return &Governor{sem: semaphore.NewWeighted(int64(slots))}
}

func (g *Governor) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *Governor) Release() {
	g.sem.Release(1)
}
