package filter

import (
	"context"

	"github.com/s0up4200/marquee/tmdb"
)

// Filter defines the basic interface for movie filters
type Filter interface {
	// Evaluate checks if a movie matches the filter criteria
	Evaluate(movie tmdb.MovieSummary) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// Evaluator evaluates filters against movies
type Evaluator interface {
	// Evaluate evaluates a filter against all movies
	Evaluate(ctx context.Context, filter Filter, movies []tmdb.MovieSummary) ([]tmdb.MovieSummary, error)

	// EvaluateBatch evaluates several named filters against the same movies
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, movies []tmdb.MovieSummary) (map[string][]tmdb.MovieSummary, error)
}

// Apply returns the movies f matches, keeping their order. A nil filter
// matches everything.
func Apply(f Filter, movies []tmdb.MovieSummary) []tmdb.MovieSummary {
	if f == nil {
		return movies
	}

	matches := make([]tmdb.MovieSummary, 0, len(movies))
	for _, movie := range movies {
		if f.Evaluate(movie) {
			matches = append(matches, movie)
		}
	}
	return matches
}
