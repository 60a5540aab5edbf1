package view

import (
	"fmt"
	"strings"

	"github.com/s0up4200/marquee/tmdb"
)

// ConsoleFormatter renders screen snapshots as text for the terminal
type ConsoleFormatter struct {
	images tmdb.ImageHost
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(images tmdb.ImageHost) *ConsoleFormatter {
	return &ConsoleFormatter{images: images}
}

// FormatScreen formats every section of a snapshot in display order
func (f *ConsoleFormatter) FormatScreen(sections []SectionState) string {
	var sb strings.Builder

	for _, section := range sections {
		f.FormatSection(&sb, section)
	}

	return sb.String()
}

// FormatSection writes one section, whatever its state
func (f *ConsoleFormatter) FormatSection(sb *strings.Builder, section SectionState) {
	fmt.Fprintf(sb, "\n%s\n", Heading(section.Name))

	state := section.State
	switch {
	case state.IsLoading():
		sb.WriteString("  Loading...\n")
		return
	case state.IsFailed():
		fmt.Fprintf(sb, "  %s\n", ErrorMessage(section.Name))
		return
	}

	switch value := state.Value.(type) {
	case *tmdb.MovieDetail:
		f.formatDetail(sb, value)
	case *tmdb.MoviePage:
		f.formatMovies(sb, value.Results)
		if value.TotalPages > 0 {
			fmt.Fprintf(sb, "\nPage %d of %d (%d results)\n", value.Page, value.TotalPages, value.TotalResults)
		}
	case []tmdb.MovieSummary:
		f.formatMovies(sb, value)
	case []tmdb.CastMember:
		f.formatCast(sb, value)
	case []tmdb.ImageAsset:
		f.formatPosters(sb, value)
	case []tmdb.Review:
		f.formatReviews(sb, value)
	default:
		fmt.Fprintf(sb, "  %v\n", value)
	}
}

func (f *ConsoleFormatter) formatDetail(sb *strings.Builder, movie *tmdb.MovieDetail) {
	title := movie.Title
	if year := ReleaseYear(movie.ReleaseDate); year > 0 {
		title = fmt.Sprintf("%s (%d)", title, year)
	}
	fmt.Fprintf(sb, "╭── %s\n", title)

	indent := "│   "
	if movie.Tagline != "" {
		fmt.Fprintf(sb, "%s%s\n", indent, movie.Tagline)
	}
	fmt.Fprintf(sb, "%s%s %s\n", indent, starGlyphs(movie.VoteAverage), RatingLabel(movie.VoteAverage))

	var info []string
	if movie.ReleaseDate != "" {
		info = append(info, "Released: "+FormatDate(movie.ReleaseDate))
	}
	if movie.Runtime > 0 {
		info = append(info, fmt.Sprintf("Runtime: %dm", movie.Runtime))
	}
	if len(info) > 0 {
		fmt.Fprintf(sb, "%s%s\n", indent, strings.Join(info, " | "))
	}
	if genres := movie.GenreNames(); len(genres) > 0 {
		fmt.Fprintf(sb, "%sGenres: %s\n", indent, strings.Join(genres, ", "))
	}
	fmt.Fprintf(sb, "%sPoster: %s\n", indent, f.images.PosterURL(movie.PosterPath))
	if movie.Overview != "" {
		fmt.Fprintf(sb, "%s\n%s%s\n", indent, indent, movie.Overview)
	}
	sb.WriteString("╰──\n")
}

func (f *ConsoleFormatter) formatMovies(sb *strings.Builder, movies []tmdb.MovieSummary) {
	if len(movies) == 0 {
		sb.WriteString("  No movies found\n")
		return
	}

	for i, movie := range movies {
		isLast := i == len(movies)-1
		prefix, indent := treeGlyphs(isLast)

		title := movie.Title
		if year := ReleaseYear(movie.ReleaseDate); year > 0 {
			title = fmt.Sprintf("%s (%d)", title, year)
		}
		fmt.Fprintf(sb, "%s── %s [#%d]\n", prefix, title, movie.ID)
		fmt.Fprintf(sb, "%s%s %s\n", indent, starGlyphs(movie.VoteAverage), RatingLabel(movie.VoteAverage))
		if movie.ReleaseDate != "" {
			fmt.Fprintf(sb, "%sRelease Date: %s\n", indent, FormatDate(movie.ReleaseDate))
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}
}

func (f *ConsoleFormatter) formatCast(sb *strings.Builder, cast []tmdb.CastMember) {
	if len(cast) == 0 {
		sb.WriteString("  No cast listed\n")
		return
	}

	for i, member := range cast {
		prefix, _ := treeGlyphs(i == len(cast)-1)
		if member.Character != "" {
			fmt.Fprintf(sb, "%s── %s as %s\n", prefix, member.Name, member.Character)
		} else {
			fmt.Fprintf(sb, "%s── %s\n", prefix, member.Name)
		}
	}
}

func (f *ConsoleFormatter) formatPosters(sb *strings.Builder, posters []tmdb.ImageAsset) {
	if len(posters) == 0 {
		sb.WriteString("  No posters available\n")
		return
	}

	for i, poster := range posters {
		prefix, _ := treeGlyphs(i == len(posters)-1)
		fmt.Fprintf(sb, "%s── %s (%dx%d)\n", prefix, f.images.ImageURL(poster.FilePath), poster.Width, poster.Height)
	}
}

func (f *ConsoleFormatter) formatReviews(sb *strings.Builder, reviews []tmdb.Review) {
	if len(reviews) == 0 {
		sb.WriteString("  No reviews yet\n")
		return
	}

	for i, review := range reviews {
		isLast := i == len(reviews)-1
		prefix, indent := treeGlyphs(isLast)

		header := review.Author
		if rating := review.AuthorDetails.Rating; rating != nil {
			header += fmt.Sprintf(" (%.0f/10)", *rating)
		}
		fmt.Fprintf(sb, "%s── %s\n", prefix, header)
		if created := strings.SplitN(review.CreatedAt, "T", 2)[0]; created != "" {
			fmt.Fprintf(sb, "%s%s\n", indent, FormatDate(created))
		}
		fmt.Fprintf(sb, "%s%s\n", indent, ShortenPlot(strings.Join(strings.Fields(review.Content), " ")))

		if !isLast {
			sb.WriteString("│\n")
		}
	}
}

func treeGlyphs(isLast bool) (prefix, indent string) {
	if isLast {
		return "╰", "    "
	}
	return "├", "│   "
}

func starGlyphs(voteAverage float64) string {
	var sb strings.Builder
	for _, filled := range Stars(voteAverage) {
		if filled {
			sb.WriteString("★")
		} else {
			sb.WriteString("☆")
		}
	}
	return sb.String()
}
