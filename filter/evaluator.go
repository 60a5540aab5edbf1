package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/marquee/tmdb"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the maximum number of filters evaluated at once
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// ConcurrentEvaluator implements Evaluator. A single filter runs
// sequentially; a batch runs one goroutine per filter, bounded by the
// worker count.
type ConcurrentEvaluator struct {
	workerCount int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate evaluates a single filter against all movies
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter Filter, movies []tmdb.MovieSummary) ([]tmdb.MovieSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Apply(filter, movies), nil
}

// EvaluateBatch evaluates multiple filters against movies concurrently
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, movies []tmdb.MovieSummary) (map[string][]tmdb.MovieSummary, error) {
	results := make(map[string][]tmdb.MovieSummary, len(filters))
	if len(filters) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for name, filter := range filters {
		g.Go(func() error {
			matches, err := e.Evaluate(ctx, filter, movies)
			if err != nil {
				return err
			}

			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
