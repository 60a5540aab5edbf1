// Package tmdb provides a client for The Movie Database (TMDB) v3 REST API.
//
// The client covers the read-only endpoints a movie browser needs: search,
// movie detail, credits, images, reviews, recommendations and the three
// curated lists (now playing, top rated, upcoming).
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := tmdb.NewClient(
//		"https://api.themoviedb.org/3",
//		"your-api-key",
//		logger,
//		tmdb.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	page, err := client.SearchMovies(ctx, "star wars", 1)
//
// # Error Handling
//
// Every failure is reported as ErrFetchFailed. This includes transport
// errors, non-2xx statuses and malformed or unexpected payloads. The
// concrete cause is kept on *FetchError for logging, but callers are
// expected to branch only on
//
//	errors.Is(err, tmdb.ErrFetchFailed)
//
// The client never retries.
//
// # Images
//
// Poster and profile URLs are built by ImageHost. An empty relative path
// resolves to PlaceholderAsset, a path served by the application itself.
package tmdb
