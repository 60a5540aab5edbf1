package view

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/s0up4200/marquee/tmdb"
)

// StarCount is the number of stars in a rating display
const StarCount = 5

// PlotLength is the number of characters kept by ShortenPlot
const PlotLength = 250

// Stars converts a 0-10 vote average into five stars, round(vote/2) of them filled
func Stars(voteAverage float64) [StarCount]bool {
	var stars [StarCount]bool
	filled := int(math.Round(voteAverage / 2))
	for i := range stars {
		stars[i] = i < filled
	}
	return stars
}

// RatingLabel renders the vote average truncated to an integer
func RatingLabel(voteAverage float64) string {
	return fmt.Sprintf("Rating: %d / 10", int(voteAverage))
}

// FormatDate renders a YYYY-MM-DD date as "May 4, 2023". Anything else is
// returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// ReleaseYear returns the year of a YYYY-MM-DD date, or 0
func ReleaseYear(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// ShortenPlot keeps the first PlotLength characters of text and appends an
// ellipsis
func ShortenPlot(text string) string {
	if utf8.RuneCountInString(text) > PlotLength {
		text = string([]rune(text)[:PlotLength])
	}
	return text + "..."
}

// Heading returns the display title of a section
func Heading(name SectionName) string {
	switch name {
	case SectionDetail:
		return "Movie"
	case SectionSimilar:
		return "Similar Movies"
	case SectionCredits:
		return "Cast"
	case SectionImages:
		return "Movie Posters"
	case SectionReviews:
		return "User Reviews"
	case SectionTrending:
		return "Trending"
	case SectionTopRated:
		return "Top Rated"
	case SectionUpcoming:
		return "Upcoming"
	case SectionSearch:
		return "Search Results"
	default:
		if name == "" {
			return ""
		}
		return strings.ToUpper(string(name[:1])) + string(name[1:])
	}
}

// ErrorMessage returns the message shown in place of a failed section.
// Failures are never told apart beyond which section they hit.
func ErrorMessage(name SectionName) string {
	switch name {
	case SectionImages:
		return "Error loading movie images"
	case SectionReviews:
		return "Error loading movie reviews"
	default:
		return tmdb.ErrFetchFailed.Error()
	}
}
