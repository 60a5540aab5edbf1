package tmdb

import (
	"context"
)

// API defines the interface for TMDB operations
type API interface {
	// Fetch retrieves any resource kind; the result type is the one Decode documents
	Fetch(ctx context.Context, kind Kind, params Params) (any, error)

	// TestConnection verifies the client can reach TMDB with its key
	TestConnection(ctx context.Context) error
}

// MovieFetcher exposes typed accessors per resource kind
type MovieFetcher interface {
	SearchMovies(ctx context.Context, query string, page int) (*MoviePage, error)
	GetMovieDetail(ctx context.Context, movieID int64) (*MovieDetail, error)
	GetMovieCredits(ctx context.Context, movieID int64) (*Credits, error)
	GetMovieImages(ctx context.Context, movieID int64) (*Images, error)
	GetMovieReviews(ctx context.Context, movieID int64) (*ReviewPage, error)
	GetSimilarMovies(ctx context.Context, movieID int64) (*MoviePage, error)
	GetNowPlaying(ctx context.Context) (*MoviePage, error)
	GetTopRated(ctx context.Context) (*MoviePage, error)
	GetUpcoming(ctx context.Context) (*MoviePage, error)
}
