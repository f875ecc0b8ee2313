// Package scheduler implements C9: driving the resolver and
// working-directory builder across many specifications with bounded
// parallelism and cooperative cancellation.
package scheduler

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// PrepareFunc runs C6+C7 for one specification. Implementations must
// check ctx at the checkpoints spec.md §4.9 names (resolver start,
// per-template write loop, dependency discovery) so cancellation is
// prompt rather than merely eventual.
type PrepareFunc func(ctx context.Context, spec string) (string, error)

// Result is one specification's outcome.
type Result struct {
	WorkingDirectory string
	Err              *domain.PreparationError
}

// Run executes prepare for every entry in specs with at most parallelism
// concurrent workers (0 or negative means runtime.GOMAXPROCS(0), spec.md
// §4.9's "hardware concurrency" default). Specifications are independent:
// one spec's failure never aborts another's (spec.md §7 surfacing
// policy) — only ctx cancellation does that, and even then every started
// worker still reports its own result.
func Run(ctx context.Context, specs []string, parallelism int, prepare PrepareFunc) map[string]Result {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	results := make(map[string]Result, len(specs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			dir, err := prepare(gctx, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[spec] = Result{Err: &domain.PreparationError{Spec: spec, Err: err}}
			} else {
				results[spec] = Result{WorkingDirectory: dir}
			}
			return nil
		})
	}
	// Errors are captured per-spec above; g.Wait() here only waits for
	// completion since every worker returns nil to its own errgroup slot
	// (a spec-scoped failure must never cancel the others' contexts).
	_ = g.Wait()
	return results
}
