package view

import (
	"fmt"
	"strings"

	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/query"
	"github.com/s0up4200/marquee/tmdb"
)

// SectionName identifies a section within a screen
type SectionName string

const (
	SectionDetail   SectionName = "detail"
	SectionSimilar  SectionName = "similar"
	SectionCredits  SectionName = "credits"
	SectionImages   SectionName = "images"
	SectionReviews  SectionName = "reviews"
	SectionTrending SectionName = "trending"
	SectionTopRated SectionName = "top-rated"
	SectionUpcoming SectionName = "upcoming"
	SectionSearch   SectionName = "search"
)

// ScreenName identifies a screen layout
type ScreenName string

const (
	ScreenHome  ScreenName = "home"
	ScreenMovie ScreenName = "movie"
)

// SectionSpec binds a section to the cache key it renders and the projection
// from the raw response to the section's value.
//
// Section values by name:
//
//	detail                               *tmdb.MovieDetail
//	similar, trending, top-rated, upcoming []tmdb.MovieSummary
//	credits                              []tmdb.CastMember
//	images                               []tmdb.ImageAsset (posters)
//	reviews                              []tmdb.Review
//	search                               *tmdb.MoviePage
type SectionSpec struct {
	Name    SectionName
	Key     query.Key
	Project func(value any) (any, error)
}

// resolve maps a cache entry to the section's state
func (s SectionSpec) resolve(e query.Entry) Remote[any] {
	r := FromEntry[any](e)
	if !r.IsReady() || s.Project == nil {
		return r
	}

	value, err := s.Project(r.Value)
	if err != nil {
		return Failed[any](err)
	}
	return Ready(value)
}

// ScreenSpec lists the sections a screen mounts, in display order
type ScreenSpec struct {
	Name     ScreenName
	MovieID  int64
	Query    string
	Page     int
	Sections []SectionSpec
}

// Section returns the named section spec
func (s ScreenSpec) Section(name SectionName) (SectionSpec, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return SectionSpec{}, false
}

// Only narrows the screen to a single section, as used by fragment requests
func (s ScreenSpec) Only(name SectionName) (ScreenSpec, bool) {
	sec, ok := s.Section(name)
	if !ok {
		return ScreenSpec{}, false
	}
	s.Sections = []SectionSpec{sec}
	return s, true
}

// Names returns the section names in display order
func (s ScreenSpec) Names() []SectionName {
	names := make([]SectionName, 0, len(s.Sections))
	for _, sec := range s.Sections {
		names = append(names, sec.Name)
	}
	return names
}

// DetailScreen describes the movie page: the movie itself, recommendations,
// cast, posters and reviews
func DetailScreen(movieID int64) ScreenSpec {
	return ScreenSpec{
		Name:    ScreenMovie,
		MovieID: movieID,
		Sections: []SectionSpec{
			{
				Name:    SectionDetail,
				Key:     query.MovieKey(tmdb.KindDetail, movieID),
				Project: project(func(d *tmdb.MovieDetail) *tmdb.MovieDetail { return d }),
			},
			{
				Name:    SectionSimilar,
				Key:     query.MovieKey(tmdb.KindSimilar, movieID),
				Project: projectMovies(nil),
			},
			{
				Name:    SectionCredits,
				Key:     query.MovieKey(tmdb.KindCredits, movieID),
				Project: project(func(c *tmdb.Credits) []tmdb.CastMember { return c.Cast }),
			},
			{
				Name:    SectionImages,
				Key:     query.MovieKey(tmdb.KindImages, movieID),
				Project: project(func(i *tmdb.Images) []tmdb.ImageAsset { return i.Posters }),
			},
			{
				Name:    SectionReviews,
				Key:     query.MovieKey(tmdb.KindReviews, movieID),
				Project: project(func(p *tmdb.ReviewPage) []tmdb.Review { return p.Results }),
			},
		},
	}
}

// HomeScreen describes the listing page. The curated lists are always
// present; search results only when q is not blank. f, when not nil, is
// applied to every list.
func HomeScreen(q string, page int, f filter.Filter) ScreenSpec {
	q = strings.TrimSpace(q)
	spec := ScreenSpec{
		Name:  ScreenHome,
		Query: q,
		Page:  max(page, 1),
	}

	if q != "" {
		spec.Sections = append(spec.Sections, SectionSpec{
			Name:    SectionSearch,
			Key:     query.SearchKey(q, page),
			Project: projectSearch(f),
		})
	}

	spec.Sections = append(spec.Sections,
		SectionSpec{Name: SectionTrending, Key: query.ListKey(tmdb.KindNowPlaying), Project: projectMovies(f)},
		SectionSpec{Name: SectionTopRated, Key: query.ListKey(tmdb.KindTopRated), Project: projectMovies(f)},
		SectionSpec{Name: SectionUpcoming, Key: query.ListKey(tmdb.KindUpcoming), Project: projectMovies(f)},
	)

	return spec
}

// project adapts a typed projection to SectionSpec.Project
func project[T, R any](fn func(T) R) func(any) (any, error) {
	return func(value any) (any, error) {
		typed, ok := value.(T)
		if !ok {
			var want T
			return nil, fmt.Errorf("%w: got %T, want %T", tmdb.ErrFetchFailed, value, want)
		}
		return fn(typed), nil
	}
}

func projectMovies(f filter.Filter) func(any) (any, error) {
	return project(func(p *tmdb.MoviePage) []tmdb.MovieSummary {
		return filter.Apply(f, p.Results)
	})
}

func projectSearch(f filter.Filter) func(any) (any, error) {
	return project(func(p *tmdb.MoviePage) *tmdb.MoviePage {
		if f == nil {
			return p
		}
		filtered := *p
		filtered.Results = filter.Apply(f, p.Results)
		return &filtered
	})
}
