package tx

import (
	"context"
	"sync"
)

type memoryKey struct{}

// MemoryRunner serializes units of work for the in-memory stores. The
// in-memory stores apply writes immediately, so a failed unit of work is not
// rolled back; it only guarantees that two transitions do not interleave.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryKey{}) != nil {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, memoryKey{}, true))
}
