// Package scheduler runs a task over an ordered batch with a fixed number
// of workers, keeping results aligned with their inputs.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bookenrich/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 6

// Progress reports completed out of total. Calls are serialized and
// completed never decreases.
type Progress func(completed, total int)

type Options struct {
	Concurrency int
	// Delay is the politeness pause a worker takes after each task.
	Delay time.Duration
	// ProgressEvery emits progress every N completions; the final
	// completion is always emitted.
	ProgressEvery int
	OnProgress    Progress
	Logger        *logger.Logger
}

// RunAll calls work for every item and returns the results in input order.
// A panicking task yields fallback(i, item) for its slot. RunAll returns
// only after every item has a result, even when ctx is cancelled; work is
// expected to return promptly in that case.
func RunAll[T, R any](ctx context.Context, items []T, work func(context.Context, int, T) R, fallback func(int, T) R, opts Options) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if limit > len(items) {
		limit = len(items)
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	var (
		cursor    atomic.Int64
		mu        sync.Mutex
		completed int
	)
	done := func() {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if opts.OnProgress != nil && (completed%every == 0 || completed == len(items)) {
			opts.OnProgress(completed, len(items))
		}
	}

	run := func(i int) {
		defer done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("task panicked", "index", i, "panic", r)
				results[i] = fallback(i, items[i])
			}
		}()
		results[i] = work(ctx, i, items[i])
	}

	// Workers never return an error; the group is only the join point.
	var g errgroup.Group
	for w := 0; w < limit; w++ {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				run(i)
				pause(ctx, opts.Delay)
			}
		})
	}
	_ = g.Wait()
	return results
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 || ctx.Err() != nil {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
