package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/marquee/tmdb"
)

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasGenre(28)`,
			wantErr:    false,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `containsFold(Title, "unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown field",
			expression: `Ratng > 5`,
			wantErr:    true,
		},
		{
			name:       "non-boolean result",
			expression: `VoteAverage + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `hasAnyGenre(28, 878) and Year >= 2020 and VoteAverage > 7.0 and not Adult`,
			wantErr:    false,
		},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				var compErr *CompilationError
				if err != nil && !errors.As(err, &compErr) {
					t.Errorf("expected *CompilationError, got %T", err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if filter == nil {
					t.Errorf("expected filter but got nil")
				}
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	lastYear := time.Now().AddDate(-1, 0, 0).Format(releaseDateLayout)
	nextYear := time.Now().AddDate(1, 0, 0).Format(releaseDateLayout)

	movie := tmdb.MovieSummary{
		ID:               11,
		Title:            "Star Wars",
		Overview:         "Princess Leia is captured",
		PosterPath:       "/6FfCtAuVAW8XJjZ7eWeLibRLWTw.jpg",
		ReleaseDate:      "1977-05-25",
		VoteAverage:      8.2,
		VoteCount:        19000,
		Popularity:       80.5,
		OriginalLanguage: "en",
		GenreIDs:         []int{12, 28, 878},
	}

	tests := []struct {
		name       string
		expression string
		movie      tmdb.MovieSummary
		expected   bool
	}{
		{"has genre", `hasGenre(878)`, movie, true},
		{"missing genre", `hasGenre(35)`, movie, false},
		{"any genre", `hasAnyGenre(35, 28)`, movie, true},
		{"year", `Year == 1977`, movie, true},
		{"rating threshold", `VoteAverage >= 8`, movie, true},
		{"vote count", `VoteCount > 20000`, movie, false},
		{"title contains fold", `containsFold(Title, "STAR")`, movie, true},
		{"title prefix fold", `hasPrefixFold(Title, "wars")`, movie, false},
		{"title suffix fold", `hasSuffixFold(Title, "WARS")`, movie, true},
		{"title contains operator", `lower(Title) contains "star"`, movie, true},
		{"title starts with operator", `Title startsWith "Star"`, movie, true},
		{"language", `Language == "en"`, movie, true},
		{"has poster", `HasPoster`, movie, true},
		{"not adult", `not Adult`, movie, true},
		{"release date compare", `ReleaseDate < parseDate("1980-01-01")`, movie, true},
		{"released", `isReleased()`, movie, true},
		{"released within", `releasedWithin(30)`, movie, false},
		{
			name:       "recent release",
			expression: `releasedWithin(400)`,
			movie:      tmdb.MovieSummary{Title: "Recent", ReleaseDate: lastYear},
			expected:   true,
		},
		{
			name:       "unreleased",
			expression: `isReleased()`,
			movie:      tmdb.MovieSummary{Title: "Upcoming", ReleaseDate: nextYear},
			expected:   false,
		},
		{
			name:       "missing release date",
			expression: `Year == 0 and not isReleased()`,
			movie:      tmdb.MovieSummary{Title: "Unknown"},
			expected:   true,
		},
		{"complex", `hasGenre(28) and VoteAverage > 7 and Year < 1980`, movie, true},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile filter: %v", err)
			}

			result := filter.Evaluate(tt.movie)
			if result != tt.expected {
				t.Errorf("expected %v but got %v for expression %q", tt.expected, result, tt.expression)
			}
		})
	}
}

func TestEvaluationErrorHandler(t *testing.T) {
	var got *EvaluationError
	compiler := NewExprCompiler(
		WithCustomFunctions(map[string]any{
			"explode": func(title string) (bool, error) {
				return false, fmt.Errorf("cannot evaluate %s", title)
			},
		}),
		WithErrorHandler(func(err *EvaluationError) { got = err }),
	)

	filter, err := compiler.Compile(`explode(Title)`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	if filter.Evaluate(tmdb.MovieSummary{Title: "Alien"}) {
		t.Error("expected failed evaluation to not match")
	}
	if got == nil {
		t.Fatal("expected error handler to be called")
	}
	if got.MovieTitle != "Alien" || got.Expression != "explode(Title)" {
		t.Errorf("unexpected evaluation error: %v", got)
	}
}

func TestApply(t *testing.T) {
	movies := generateTestMovies(20)

	if got := Apply(nil, movies); len(got) != len(movies) {
		t.Errorf("nil filter should match everything, got %d of %d", len(got), len(movies))
	}

	filter, err := NewExprCompiler().Compile(`VoteAverage >= 8`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	matches := Apply(filter, movies)
	for i := 1; i < len(matches); i++ {
		if matches[i-1].ID > matches[i].ID {
			t.Errorf("order not preserved: %d before %d", matches[i-1].ID, matches[i].ID)
		}
	}
	for _, m := range matches {
		if m.VoteAverage < 8 {
			t.Errorf("movie %q with rating %.1f should not match", m.Title, m.VoteAverage)
		}
	}
	if len(matches) == 0 || len(matches) == len(movies) {
		t.Errorf("expected a partial match, got %d of %d", len(matches), len(movies))
	}
}

func TestBatchEvaluation(t *testing.T) {
	movies := generateTestMovies(200)
	compiler := NewExprCompiler()

	expressions := map[string]string{
		"action":    `hasGenre(28)`,
		"recent":    `Year >= 2023`,
		"highRated": `VoteAverage > 7.0`,
	}

	filters := make(map[string]CompiledFilter, len(expressions))
	for name, expr := range expressions {
		filter, err := compiler.Compile(expr)
		if err != nil {
			t.Fatalf("failed to compile %s: %v", name, err)
		}
		filters[name] = filter
	}

	evaluator := NewConcurrentEvaluator(WithWorkers(2))
	results, err := evaluator.EvaluateBatch(context.Background(), filters, movies)
	if err != nil {
		t.Fatalf("batch evaluation failed: %v", err)
	}

	if len(results) != len(filters) {
		t.Errorf("expected %d filter results but got %d", len(filters), len(results))
	}

	for name, filter := range filters {
		if want := Apply(filter, movies); len(results[name]) != len(want) {
			t.Errorf("filter %q: expected %d matches but got %d", name, len(want), len(results[name]))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := evaluator.EvaluateBatch(ctx, filters, movies); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFilterManager(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	ctx := context.Background()

	filters := map[string]string{
		"action":    `hasGenre(28)`,
		"recent":    `Year > 2022`,
		"acclaimed": `VoteAverage >= 8 and VoteCount > 100`,
	}

	if err := manager.RegisterFilters(filters); err != nil {
		t.Fatalf("failed to register filters: %v", err)
	}

	names := manager.ListFilters()
	if strings.Join(names, ",") != "acclaimed,action,recent" {
		t.Errorf("unexpected preset names: %v", names)
	}

	filter, exists := manager.GetFilter("action")
	if !exists || filter == nil {
		t.Fatal("expected filter 'action' to exist")
	}

	movies := generateTestMovies(100)
	matches, err := manager.EvaluateFilter(ctx, "action", movies)
	if err != nil {
		t.Fatalf("failed to evaluate filter: %v", err)
	}
	if len(matches) == 0 {
		t.Error("expected some matches")
	}

	all, err := manager.EvaluateAll(ctx, movies)
	if err != nil {
		t.Fatalf("failed to evaluate all filters: %v", err)
	}
	if len(all) != len(filters) {
		t.Errorf("expected %d results but got %d", len(filters), len(all))
	}

	if _, err := manager.EvaluateFilter(ctx, "missing", movies); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}

	// a failing expression leaves the registry unchanged
	if err := manager.RegisterFilters(map[string]string{"ok": `Adult`, "bad": `Adult +`}); err == nil {
		t.Error("expected registration error")
	}
	if _, exists := manager.GetFilter("ok"); exists {
		t.Error("expected no partial registration")
	}

	manager.UnregisterFilter("action")
	if _, exists := manager.GetFilter("action"); exists {
		t.Error("expected filter 'action' to be removed")
	}
}

func TestManagerResolve(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	if err := manager.RegisterFilter("acclaimed", `VoteAverage >= 8`); err != nil {
		t.Fatalf("failed to register filter: %v", err)
	}

	filter, err := manager.Resolve("", "")
	if err != nil || filter != nil {
		t.Errorf("expected no filter, got %v, %v", filter, err)
	}

	filter, err = manager.Resolve("acclaimed", `Adult`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Expression() != `VoteAverage >= 8` {
		t.Errorf("preset should win over expression, got %q", filter.Expression())
	}

	filter, err = manager.Resolve("", `hasGenre(18)`)
	if err != nil || filter.Expression() != `hasGenre(18)` {
		t.Errorf("expected ad-hoc filter, got %v, %v", filter, err)
	}

	if _, err := manager.Resolve("nope", ""); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestCacheEffectiveness(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`hasGenre(28) and Year > 2020`)
	if err != nil {
		t.Fatalf("first compilation failed: %v", err)
	}

	second, err := compiler.Compile(`  hasGenre(28) and Year > 2020  `)
	if err != nil {
		t.Fatalf("second compilation failed: %v", err)
	}
	if first != second {
		t.Error("expected cached filter to be reused")
	}
	if compiler.Size() != 1 {
		t.Errorf("expected cache size 1 but got %d", compiler.Size())
	}

	compiler.Compile(`Adult`)
	compiler.Compile(`Video`)
	if compiler.Size() != 2 {
		t.Errorf("expected cache size capped at 2 but got %d", compiler.Size())
	}

	compiler.Clear()
	if compiler.Size() != 0 {
		t.Errorf("expected cache size 0 after clear but got %d", compiler.Size())
	}
}
