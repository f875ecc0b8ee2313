package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunCollectsPerSpecResults(t *testing.T) {
	specs := []string{"petstore", "billing", "inventory"}
	results := Run(context.Background(), specs, 2, func(_ context.Context, spec string) (string, error) {
		if spec == "billing" {
			return "", errors.New("boom")
		}
		return "build/template-work/spring-" + spec, nil
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results["petstore"].Err != nil {
		t.Fatalf("unexpected error for petstore: %v", results["petstore"].Err)
	}
	if results["billing"].Err == nil {
		t.Fatal("expected billing to fail")
	}
	if results["inventory"].WorkingDirectory == "" {
		t.Fatal("expected inventory to succeed")
	}
}

func TestRunRespectsParallelismCap(t *testing.T) {
	var inFlight, maxSeen int32
	specs := make([]string, 20)
	for i := range specs {
		specs[i] = "spec"
	}

	Run(context.Background(), specs, 3, func(_ context.Context, _ string) (string, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			seen := atomic.LoadInt32(&maxSeen)
			if cur <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "", nil
	})

	if maxSeen > 3 {
		t.Fatalf("expected at most 3 concurrent workers, saw %d", maxSeen)
	}
}

func TestRunCancellationStillInvokesWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	specs := []string{"a", "b"}
	var started int32
	Run(ctx, specs, 1, func(ctx context.Context, _ string) (string, error) {
		atomic.AddInt32(&started, 1)
		return "", ctx.Err()
	})
	// An already-cancelled context does not stop Run from invoking workers;
	// each worker observes the cancellation itself.
	if started == 0 {
		t.Fatal("expected errgroup to still invoke at least one worker before observing cancellation")
	}
}
