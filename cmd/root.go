package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/config"
	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/query"
	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

var (
	cfgFile     string
	cfg         *config.Config
	logger      zerolog.Logger
	tmdbClient  *tmdb.Client
	cache       *query.Cache
	coordinator *view.Coordinator
	filters     *filter.Manager
	themes      *theme.Store
	sentryHub   *sentry.Hub

	// Command flags
	filterExpr string
	preset     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Browse TMDB movies from the terminal or the browser",
	Long: `marquee is a movie browser backed by The Movie Database. Every page is
made of independent sections that load, fail and render on their own, and
every upstream request is shared between all the sections that need it.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// execute runs the command tree and releases shared resources however the
// command ends. Cobra skips PersistentPostRunE when RunE fails.
func execute(ctx context.Context) error {
	defer shutdownApp()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(testCmd)
}

// initializeApp initializes the configuration, the TMDB client and the
// request cache every command shares
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	sentryHub, err = setupSentry(cfg.Sentry)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Sentry, error reporting disabled")
	}

	// Create TMDB client
	clientOpts := []tmdb.Option{
		tmdb.WithTimeout(cfg.TMDB.Timeout),
		tmdb.WithImageHost(tmdb.ImageHost{
			PosterBase: cfg.TMDB.PosterURL,
			ImageBase:  cfg.TMDB.ImageURL,
		}),
	}
	if sentryHub != nil {
		clientOpts = append(clientOpts, tmdb.WithSentryHub(sentryHub))
	}
	tmdbClient, err = tmdb.NewClient(cfg.TMDB.URL, cfg.TMDB.APIKey, logger, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create TMDB client: %w", err)
	}

	var cacheOpts []query.Option
	if cfg.Cache.Redis.Enabled {
		store, err := query.NewRedisStore(query.RedisConfig{
			URL:       cfg.Cache.Redis.URL,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
			TTL:       cfg.Cache.Redis.TTL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, continuing with the in-process cache only")
		} else {
			cacheOpts = append(cacheOpts, query.WithStore(store))
			logger.Info().Msg("Redis response store enabled")
		}
	}

	cache = query.New(query.NewClientResolver(tmdbClient), logger, cacheOpts...)
	coordinator = view.NewCoordinator(cache, logger)

	// Register filter presets
	filters = filter.NewManager(logger)
	presets := make(map[string]string, len(cfg.Filter.Presets))
	for name, p := range cfg.Filter.Presets {
		presets[name] = p.Expression
	}
	if err := filters.RegisterFilters(presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	mode, err := theme.ParseMode(cfg.Theme.Default)
	if err != nil {
		return err
	}
	themes = theme.NewStore(mode)

	return nil
}

// shutdownApp releases the cache and its store, then flushes pending error
// reports
func shutdownApp() {
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close cache")
		}
		cache = nil
	}
	if sentryHub != nil {
		sentryHub.Flush(sentryFlushTimeout)
		sentryHub = nil
	}
}

const sentryFlushTimeout = 2 * time.Second

// setupSentry initializes the global Sentry client. It returns a nil hub
// when no DSN is configured.
func setupSentry(cfg config.SentryConfig) (*sentry.Hub, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     "marquee@" + appVersion,
		SampleRate:  cfg.SampleRate,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	logger.Info().Str("environment", cfg.Environment).Msg("Sentry error reporting enabled")
	return sentry.CurrentHub(), nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to TMDB",
	Long:  `Test the connection to the TMDB API and display basic information.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to TMDB at %s...\n", cfg.TMDB.URL)

	ctx := cmd.Context()
	if err := tmdbClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Println("✓ Connection successful!")

	nowPlaying, err := tmdbClient.GetNowPlaying(ctx)
	if err != nil {
		return fmt.Errorf("failed to get now playing: %w", err)
	}

	images := tmdbClient.Images()
	fmt.Printf("\nTMDB Statistics:\n")
	fmt.Printf("- Now playing: %d movies (%d pages)\n", nowPlaying.TotalResults, nowPlaying.TotalPages)
	fmt.Printf("- Poster host: %s\n", images.PosterBase)
	fmt.Printf("- Image host: %s\n", images.ImageBase)

	if cfg.Cache.Redis.Enabled {
		fmt.Printf("- Redis store: %s\n", cfg.Cache.Redis.URL)
	} else {
		fmt.Println("- Redis store: Disabled")
	}

	if names := filters.ListFilters(); len(names) > 0 {
		fmt.Printf("\nFilter presets:\n")
		for _, name := range names {
			fmt.Printf("  • %s: %s\n", name, cfg.Filter.Presets[name].Expression)
		}
	}

	return nil
}

// resolveFilter determines the list filter to apply.
// Priority: command line filter > preset > default expression.
func resolveFilter() (filter.Filter, error) {
	expression := filterExpr
	if expression == "" && preset == "" {
		expression = cfg.Filter.DefaultExpression
	}

	compiled, err := filters.Resolve(preset, expression)
	if err != nil {
		return nil, err
	}
	if compiled == nil {
		return nil, nil
	}

	logger.Debug().Str("filter", compiled.Expression()).Msg("Applying list filter")
	return compiled, nil
}
