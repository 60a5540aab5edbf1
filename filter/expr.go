package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/marquee/tmdb"
)

// releaseDateLayout is the layout TMDB uses for release_date
const releaseDateLayout = "2006-01-02"

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	custom     map[string]any
	onError    func(*EvaluationError)
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.custom, funcs)
	}
}

// WithErrorHandler is called whenever a compiled filter fails at runtime.
// The movie is treated as not matching either way.
func WithErrorHandler(fn func(*EvaluationError)) ExprCompilerOption {
	return func(c *exprCompiler) {
		c.onError = fn
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		custom: make(map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	custom  map[string]any
	cache   *lruCache[CompiledFilter]
	onError func(*EvaluationError)
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// The compile environment carries zero-valued movie fields so unknown
	// names and type mismatches are rejected up front
	env := createRuntimeEnvironment(tmdb.MovieSummary{})
	maps.Copy(env, c.custom)

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		custom:     c.custom,
		onError:    c.onError,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a movie
func (f *exprFilter) Evaluate(movie tmdb.MovieSummary) bool {
	env := createRuntimeEnvironment(movie)
	maps.Copy(env, f.custom)

	result, err := expr.Run(f.program, env)
	if err != nil {
		if f.onError != nil {
			f.onError(&EvaluationError{
				Expression: f.expression,
				MovieTitle: movie.Title,
				Err:        err,
			})
		}
		return false
	}

	// Result is guaranteed to be bool due to AsBool() option during compilation
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(releaseDateLayout, dateStr)
		return t
	}
	// String helpers. contains, startsWith and endsWith are expr operators,
	// so the case-insensitive variants carry their own names.
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefixFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffixFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	// Current time
	env["now"] = time.Now
}

// createRuntimeEnvironment creates the runtime environment for filter evaluation
func createRuntimeEnvironment(movie tmdb.MovieSummary) map[string]any {
	env := make(map[string]any, 32)

	addHelperFunctions(env)

	released, _ := time.Parse(releaseDateLayout, movie.ReleaseDate)

	env["Movie"] = movie

	// Movie-specific helpers
	env["hasGenre"] = createHasGenreFunc(movie.GenreIDs)
	env["hasAnyGenre"] = createHasAnyGenreFunc(movie.GenreIDs)
	env["isReleased"] = createIsReleasedFunc(released)
	env["releasedWithin"] = createReleasedWithinFunc(released)

	// Direct movie properties for convenience
	env["ID"] = movie.ID
	env["Title"] = movie.Title
	env["OriginalTitle"] = movie.OriginalTitle
	env["Overview"] = movie.Overview
	env["ReleaseDate"] = released
	env["Year"] = released.Year()
	env["VoteAverage"] = movie.VoteAverage
	env["VoteCount"] = movie.VoteCount
	env["Popularity"] = movie.Popularity
	env["Adult"] = movie.Adult
	env["Video"] = movie.Video
	env["Language"] = movie.OriginalLanguage
	env["GenreIDs"] = movie.GenreIDs
	env["HasPoster"] = movie.PosterPath != ""

	if released.IsZero() {
		env["Year"] = 0
	}

	return env
}

func createHasGenreFunc(genres []int) func(int) bool {
	return func(id int) bool {
		return slices.Contains(genres, id)
	}
}

func createHasAnyGenreFunc(genres []int) func(...int) bool {
	return func(ids ...int) bool {
		for _, id := range ids {
			if slices.Contains(genres, id) {
				return true
			}
		}
		return false
	}
}

func createIsReleasedFunc(released time.Time) func() bool {
	return func() bool {
		return !released.IsZero() && !released.After(time.Now())
	}
}

func createReleasedWithinFunc(released time.Time) func(int) bool {
	return func(days int) bool {
		if released.IsZero() {
			return false
		}
		return released.After(time.Now().AddDate(0, 0, -days)) && !released.After(time.Now())
	}
}
