package tmdb

import (
	"fmt"
	"net/url"
	"strconv"
)

// Kind identifies one of the remote resource shapes the client can fetch
type Kind string

const (
	// KindSearch is a paged movie search by query string
	KindSearch Kind = "search"
	// KindDetail is a single movie's full record
	KindDetail Kind = "detail"
	// KindCredits is a movie's cast list
	KindCredits Kind = "credits"
	// KindImages is a movie's poster set
	KindImages Kind = "images"
	// KindReviews is a movie's paged review list
	KindReviews Kind = "reviews"
	// KindSimilar is a movie's recommendations
	KindSimilar Kind = "similar"
	// KindNowPlaying is the curated now-playing list
	KindNowPlaying Kind = "now-playing"
	// KindTopRated is the curated top-rated list
	KindTopRated Kind = "top-rated"
	// KindUpcoming is the curated upcoming list
	KindUpcoming Kind = "upcoming"
)

// Kinds returns every resource kind in a stable order
func Kinds() []Kind {
	return []Kind{
		KindSearch,
		KindDetail,
		KindCredits,
		KindImages,
		KindReviews,
		KindSimilar,
		KindNowPlaying,
		KindTopRated,
		KindUpcoming,
	}
}

// Valid reports whether k is a known resource kind
func (k Kind) Valid() bool {
	switch k {
	case KindSearch, KindDetail, KindCredits, KindImages, KindReviews,
		KindSimilar, KindNowPlaying, KindTopRated, KindUpcoming:
		return true
	}
	return false
}

// PerMovie reports whether the kind is addressed by a movie id
func (k Kind) PerMovie() bool {
	switch k {
	case KindDetail, KindCredits, KindImages, KindReviews, KindSimilar:
		return true
	}
	return false
}

// Paged reports whether the response is a Page envelope
func (k Kind) Paged() bool {
	switch k {
	case KindSearch, KindReviews, KindSimilar, KindNowPlaying, KindTopRated, KindUpcoming:
		return true
	}
	return false
}

// Params carries the parameters a resource kind needs
type Params struct {
	ID    int64
	Query string
	Page  int
}

// endpoint returns the API path and query values for a kind, without the
// api_key parameter
func (k Kind) endpoint(p Params) (string, url.Values, error) {
	if !k.Valid() {
		return "", nil, fmt.Errorf("unknown resource kind %q", string(k))
	}

	values := url.Values{}

	if k.PerMovie() {
		if p.ID <= 0 {
			return "", nil, fmt.Errorf("%s requires a movie id", k)
		}
		id := strconv.FormatInt(p.ID, 10)
		switch k {
		case KindDetail:
			return "/movie/" + id, values, nil
		case KindCredits:
			return "/movie/" + id + "/credits", values, nil
		case KindImages:
			return "/movie/" + id + "/images", values, nil
		case KindReviews:
			return "/movie/" + id + "/reviews", values, nil
		case KindSimilar:
			return "/movie/" + id + "/recommendations", values, nil
		}
	}

	switch k {
	case KindSearch:
		if p.Query == "" {
			return "", nil, fmt.Errorf("search requires a query")
		}
		values.Set("query", p.Query)
		values.Set("page", strconv.Itoa(max(p.Page, 1)))
		return "/search/movie", values, nil
	case KindNowPlaying:
		return "/movie/now_playing", values, nil
	case KindTopRated:
		return "/movie/top_rated", values, nil
	case KindUpcoming:
		return "/movie/upcoming", values, nil
	}

	return "", nil, fmt.Errorf("no endpoint for %s", k)
}
