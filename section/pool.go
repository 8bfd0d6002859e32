package section

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// defaultWorkers returns the worker count used when none is configured.
func defaultWorkers() int {
	return runtime.NumCPU()
}

// parallel calls fn(0) ... fn(n-1) on at most workers goroutines. It
// returns the first error, after which no new index is handed out.
func parallel(workers, n int, fn func(i int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	g, ctx := errgroup.WithContext(context.Background())
	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for i := 0; i < n; i++ {
			select {
			case next <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range next {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
