package tmdb

import (
	"encoding/json"
	"fmt"
)

// MovieSummary is the movie record returned by list and search endpoints
type MovieSummary struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
}

// Genre is a named TMDB genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the full movie record from /movie/{id}
type MovieDetail struct {
	MovieSummary
	Tagline  string  `json:"tagline"`
	Runtime  int     `json:"runtime"`
	Status   string  `json:"status"`
	Homepage string  `json:"homepage,omitempty"`
	IMDbID   string  `json:"imdb_id,omitempty"`
	Genres   []Genre `json:"genres"`
	Budget   int64   `json:"budget"`
	Revenue  int64   `json:"revenue"`
}

// GenreNames returns the detail's genre names in source order
func (d *MovieDetail) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// CastMember is one entry of a movie's cast
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

// Credits is the /movie/{id}/credits response
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
}

// ImageAsset is a single poster or backdrop
type ImageAsset struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// Images is the /movie/{id}/images response
type Images struct {
	ID        int64        `json:"id"`
	Posters   []ImageAsset `json:"posters"`
	Backdrops []ImageAsset `json:"backdrops,omitempty"`
}

// AuthorDetails carries a review author's profile and rating
type AuthorDetails struct {
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	AvatarPath string   `json:"avatar_path"`
	Rating     *float64 `json:"rating"`
}

// Review is one user review
type Review struct {
	ID            string        `json:"id"`
	Author        string        `json:"author"`
	AuthorDetails AuthorDetails `json:"author_details"`
	Content       string        `json:"content"`
	URL           string        `json:"url"`
	CreatedAt     string        `json:"created_at"`
}

// Page is the paginated envelope shared by list endpoints
type Page[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// HasMorePages checks if there are more pages after this one
func (p *Page[T]) HasMorePages() bool {
	return p.Page < p.TotalPages
}

// MoviePage is a page of movie summaries
type MoviePage = Page[MovieSummary]

// ReviewPage is a page of reviews
type ReviewPage = Page[Review]

// Decode validates body against the shape expected for kind and decodes it
// into the kind's response type:
//
//	search, similar, now-playing, top-rated, upcoming -> *MoviePage
//	detail  -> *MovieDetail
//	credits -> *Credits
//	images  -> *Images
//	reviews -> *ReviewPage
//
// Nil lists are normalized to empty ones so re-encoding keeps the shape.
func Decode(kind Kind, body []byte) (any, error) {
	if err := validateShape(kind, body); err != nil {
		return nil, err
	}

	switch kind {
	case KindSearch, KindSimilar, KindNowPlaying, KindTopRated, KindUpcoming:
		var page MoviePage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", kind, err)
		}
		if page.Results == nil {
			page.Results = []MovieSummary{}
		}
		return &page, nil
	case KindDetail:
		var detail MovieDetail
		if err := json.Unmarshal(body, &detail); err != nil {
			return nil, fmt.Errorf("failed to parse detail response: %w", err)
		}
		if detail.Genres == nil {
			detail.Genres = []Genre{}
		}
		return &detail, nil
	case KindCredits:
		var credits Credits
		if err := json.Unmarshal(body, &credits); err != nil {
			return nil, fmt.Errorf("failed to parse credits response: %w", err)
		}
		if credits.Cast == nil {
			credits.Cast = []CastMember{}
		}
		return &credits, nil
	case KindImages:
		var images Images
		if err := json.Unmarshal(body, &images); err != nil {
			return nil, fmt.Errorf("failed to parse images response: %w", err)
		}
		if images.Posters == nil {
			images.Posters = []ImageAsset{}
		}
		return &images, nil
	case KindReviews:
		var page ReviewPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse reviews response: %w", err)
		}
		if page.Results == nil {
			page.Results = []Review{}
		}
		return &page, nil
	}

	return nil, fmt.Errorf("unknown resource kind %q", string(kind))
}
