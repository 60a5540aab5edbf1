package filter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/marquee/tmdb"
)

// Manager holds named filter presets and compiles ad-hoc expressions
type Manager struct {
	compiler  Compiler
	evaluator Evaluator
	logger    zerolog.Logger
	filters   map[string]CompiledFilter
	mu        sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// WithEvaluator sets a custom evaluator
func WithEvaluator(evaluator Evaluator) ManagerOption {
	return func(m *Manager) {
		m.evaluator = evaluator
	}
}

// NewManager creates a new filter manager. Runtime evaluation failures are
// logged at debug level.
func NewManager(logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		evaluator: NewConcurrentEvaluator(),
		logger:    logger,
		filters:   make(map[string]CompiledFilter),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.compiler == nil {
		m.compiler = NewExprCompiler(
			WithCache(100),
			WithErrorHandler(func(err *EvaluationError) {
				m.logger.Debug().Err(err.Err).
					Str("filter", err.Expression).
					Str("movie", err.MovieTitle).
					Msg("Filter evaluation failed, skipping movie")
			}),
		)
	}

	return m
}

// RegisterFilter registers a new preset or updates an existing one
func (m *Manager) RegisterFilter(name, expression string) error {
	filter, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile filter '%s': %w", name, err)
	}

	m.mu.Lock()
	m.filters[name] = filter
	m.mu.Unlock()

	return nil
}

// RegisterFilters registers multiple presets at once. Nothing is registered
// unless every expression compiles.
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))

	for name, expr := range filters {
		filter, err := m.compiler.Compile(expr)
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = filter
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()

	return nil
}

// UnregisterFilter removes a preset
func (m *Manager) UnregisterFilter(name string) {
	m.mu.Lock()
	delete(m.filters, name)
	m.mu.Unlock()
}

// GetFilter returns a compiled preset by name
func (m *Manager) GetFilter(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	filter, exists := m.filters[name]
	m.mu.RUnlock()
	return filter, exists
}

// ListFilters returns all preset names, sorted
func (m *Manager) ListFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.filters))
}

// Compile compiles an ad-hoc expression with the manager's compiler
func (m *Manager) Compile(expression string) (CompiledFilter, error) {
	return m.compiler.Compile(expression)
}

// Resolve picks the filter for a request: a named preset wins over an
// expression, and neither yields a nil filter that matches everything.
func (m *Manager) Resolve(preset, expression string) (CompiledFilter, error) {
	if preset != "" {
		filter, ok := m.GetFilter(preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
		}
		return filter, nil
	}

	if expression == "" {
		return nil, nil
	}

	return m.compiler.Compile(expression)
}

// EvaluateFilter evaluates a single preset
func (m *Manager) EvaluateFilter(ctx context.Context, name string, movies []tmdb.MovieSummary) ([]tmdb.MovieSummary, error) {
	filter, exists := m.GetFilter(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}

	return m.evaluator.Evaluate(ctx, filter, movies)
}

// EvaluateAll evaluates every preset against the same movies
func (m *Manager) EvaluateAll(ctx context.Context, movies []tmdb.MovieSummary) (map[string][]tmdb.MovieSummary, error) {
	m.mu.RLock()
	filters := maps.Clone(m.filters)
	m.mu.RUnlock()

	return m.evaluator.EvaluateBatch(ctx, filters, movies)
}
