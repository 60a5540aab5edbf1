package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

var (
	searchQuery string
	searchPage  int
	showPresets bool
	waitTimeout time.Duration
	onlySection string
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Show the home screen: search results and curated lists",
	Long: `Show the home screen as text. Search results for --query come first,
followed by the now playing, top rated and upcoming lists. Sections that fail
are reported in place without affecting the others.`,
	RunE: runBrowse,
}

// movieCmd represents the movie command
var movieCmd = &cobra.Command{
	Use:   "movie <id>",
	Short: "Show the detail screen of a movie",
	Long:  `Show a movie with its recommendations, cast, posters and reviews.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMovie,
}

func init() {
	browseCmd.Flags().StringVarP(&searchQuery, "query", "q", "star wars", "search query (empty to skip searching)")
	browseCmd.Flags().IntVar(&searchPage, "page", 1, "search results page")
	browseCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression applied to every list")
	browseCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	browseCmd.Flags().BoolVar(&showPresets, "presets", false, "show how many listed movies each preset matches")
	browseCmd.Flags().DurationVar(&waitTimeout, "wait", 15*time.Second, "how long to wait for sections to load")

	movieCmd.Flags().StringVarP(&onlySection, "section", "s", "", "show a single section (detail, similar, credits, images, reviews)")
	movieCmd.Flags().DurationVar(&waitTimeout, "wait", 15*time.Second, "how long to wait for sections to load")

	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(movieCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if searchPage < 1 {
		return fmt.Errorf("invalid page: %d (must be 1 or greater)", searchPage)
	}

	f, err := resolveFilter()
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}

	logger.Info().Str("query", searchQuery).Int("page", searchPage).Msg("Loading home screen")

	snapshot := mountAndSettle(cmd.Context(), view.HomeScreen(searchQuery, searchPage, f))
	fmt.Print(view.NewConsoleFormatter(tmdbClient.Images()).FormatScreen(snapshot))

	if showPresets {
		return printPresetMatches(cmd.Context(), snapshot)
	}
	return nil
}

func runMovie(cmd *cobra.Command, args []string) error {
	movieID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || movieID <= 0 {
		return fmt.Errorf("invalid movie id: %s", args[0])
	}

	spec := view.DetailScreen(movieID)
	if onlySection != "" {
		narrowed, ok := spec.Only(view.SectionName(onlySection))
		if !ok {
			return fmt.Errorf("unknown section: %s", onlySection)
		}
		spec = narrowed
	}

	logger.Info().Int64("movie_id", movieID).Msg("Loading movie screen")

	snapshot := mountAndSettle(cmd.Context(), spec)
	fmt.Print(view.NewConsoleFormatter(tmdbClient.Images()).FormatScreen(snapshot))

	return nil
}

// mountAndSettle mounts spec, waits for its sections and returns their
// final states. Sections still loading at the deadline are shown as such.
func mountAndSettle(ctx context.Context, spec view.ScreenSpec) []view.SectionState {
	screen := coordinator.Mount(spec)
	defer screen.Unmount()

	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	start := time.Now()
	if err := screen.Settle(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Dur("wait", waitTimeout).Msg("Some sections did not finish loading")
		} else {
			logger.Warn().Err(err).Msg("Stopped waiting for sections")
		}
	}

	snapshot := screen.Snapshot()
	logger.Debug().
		Dur("duration", time.Since(start)).
		Int("cached_entries", cache.Len()).
		Msg("Screen settled")

	return snapshot
}

// printPresetMatches evaluates every configured preset against the movies
// shown on screen
func printPresetMatches(ctx context.Context, snapshot []view.SectionState) error {
	movies := collectMovies(snapshot)
	if len(filters.ListFilters()) == 0 {
		fmt.Println("\nNo filter presets configured.")
		return nil
	}

	results, err := filters.EvaluateAll(ctx, movies)
	if err != nil {
		return fmt.Errorf("failed to evaluate presets: %w", err)
	}

	fmt.Printf("\nPreset matches (%d movies on screen):\n", len(movies))
	fmt.Println(strings.Repeat("-", 80))
	for _, name := range filters.ListFilters() {
		matched := results[name]
		fmt.Printf("• %s: %d", name, len(matched))
		if desc := cfg.Filter.Presets[name].Description; desc != "" {
			fmt.Printf(" (%s)", desc)
		}
		fmt.Println()
	}

	return nil
}

// collectMovies gathers the distinct movies of every ready list section
func collectMovies(snapshot []view.SectionState) []tmdb.MovieSummary {
	seen := make(map[int64]bool)
	var movies []tmdb.MovieSummary

	add := func(list []tmdb.MovieSummary) {
		for _, m := range list {
			if !seen[m.ID] {
				seen[m.ID] = true
				movies = append(movies, m)
			}
		}
	}

	for _, section := range snapshot {
		if !section.State.IsReady() {
			continue
		}
		switch value := section.State.Value.(type) {
		case []tmdb.MovieSummary:
			add(value)
		case *tmdb.MoviePage:
			add(value.Results)
		}
	}

	return movies
}
