package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

// section kinds select the template a ready section renders with
const (
	kindDetail  = "detail"
	kindMovies  = "movies"
	kindCast    = "cast"
	kindPosters = "posters"
	kindReviews = "reviews"
)

// pageData is the root value of every full page
type pageData struct {
	Title        string
	Theme        theme.Theme
	ThemeCSS     template.CSS
	Query        string
	ActivePreset string
	Presets      []string
	Sections     []sectionView
}

// sectionView is a section flattened for the templates
type sectionView struct {
	Name     string
	Heading  string
	State    string
	Kind     string
	Error    string
	Fragment string

	Detail  *tmdb.MovieDetail
	Movies  []tmdb.MovieSummary
	Cast    []tmdb.CastMember
	Posters []tmdb.ImageAsset
	Reviews []tmdb.Review
	Paging  *paging
}

// paging links a search section to its neighbouring pages
type paging struct {
	Page         int
	TotalPages   int
	TotalResults int
	PrevURL      string
	NextURL      string
}

func sectionKind(name view.SectionName) string {
	switch name {
	case view.SectionDetail:
		return kindDetail
	case view.SectionCredits:
		return kindCast
	case view.SectionImages:
		return kindPosters
	case view.SectionReviews:
		return kindReviews
	default:
		return kindMovies
	}
}

// newSectionView flattens one section. fragment is the poll URL used while
// the section is loading.
func newSectionView(section view.SectionState, fragment string) sectionView {
	sv := sectionView{
		Name:    string(section.Name),
		Heading: view.Heading(section.Name),
		State:   section.State.State.String(),
		Kind:    sectionKind(section.Name),
	}

	switch {
	case section.State.IsLoading():
		sv.Fragment = fragment
		return sv
	case section.State.IsFailed():
		sv.Error = view.ErrorMessage(section.Name)
		return sv
	}

	switch value := section.State.Value.(type) {
	case *tmdb.MovieDetail:
		sv.Detail = value
	case *tmdb.MoviePage:
		sv.Movies = value.Results
		sv.Paging = &paging{
			Page:         value.Page,
			TotalPages:   value.TotalPages,
			TotalResults: value.TotalResults,
		}
	case []tmdb.MovieSummary:
		sv.Movies = value
	case []tmdb.CastMember:
		sv.Cast = value
	case []tmdb.ImageAsset:
		sv.Posters = value
	case []tmdb.Review:
		sv.Reviews = value
	}

	return sv
}

func (s *Server) parseTemplates() error {
	images := s.deps.Images
	funcs := template.FuncMap{
		"stars":      view.Stars,
		"rating":     view.RatingLabel,
		"formatDate": view.FormatDate,
		"year":       view.ReleaseYear,
		"shorten":    view.ShortenPlot,
		"poster":     images.PosterURL,
		"image":      images.ImageURL,
		"join":       strings.Join,
		"reviewDate": func(created string) string {
			return view.FormatDate(strings.SplitN(created, "T", 2)[0])
		},
		"reviewRating": func(rating *float64) string {
			if rating == nil {
				return ""
			}
			return fmt.Sprintf("%.0f/10", *rating)
		},
	}

	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/section.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	s.base = base

	s.pages = make(map[string]*template.Template)
	for _, page := range []string{"home", "movie"} {
		clone, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone templates: %w", err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+page+".html"); err != nil {
			return fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		s.pages[page] = clone
	}

	return nil
}

// newPage fills in the theme-dependent parts of a page
func (s *Server) newPage(title string) pageData {
	active := s.deps.Themes.Active()
	return pageData{
		Title:    title,
		Theme:    active,
		ThemeCSS: themeCSS(active),
		Presets:  s.deps.Filters.ListFilters(),
	}
}

// renderPage executes a full page. Output is buffered so a template error
// becomes a 500 instead of a truncated page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	s.execute(w, r, tmpl, "layout", data)
}

// renderSection executes a single section fragment
func (s *Server) renderSection(w http.ResponseWriter, r *http.Request, sv sectionView) {
	s.execute(w, r, s.base, "section", sv)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// containerWidths pairs each breakpoint with the content width used above it
var containerWidths = []struct {
	breakpoint func(theme.Breakpoints) string
	width      string
}{
	{func(b theme.Breakpoints) string { return b.SM }, "540px"},
	{func(b theme.Breakpoints) string { return b.MD }, "720px"},
	{func(b theme.Breakpoints) string { return b.LG }, "960px"},
	{func(b theme.Breakpoints) string { return b.XL }, "1200px"},
}

// themeCSS renders the active theme as custom properties plus the
// breakpoint-dependent container widths
func themeCSS(t theme.Theme) template.CSS {
	p := t.Palette

	var sb strings.Builder
	sb.WriteString(":root {\n")
	for _, v := range [][2]string{
		{"fg", p.Foreground},
		{"bg", p.Background},
		{"bg-secondary", p.BackgroundSecondary},
		{"accent", p.Accent},
		{"error", p.Error},
		{"info", p.Info},
		{"success", p.Success},
		{"warning", p.Warning},
		{"shadow", p.Shadow},
		{"skeleton", t.SkeletonColor()},
	} {
		fmt.Fprintf(&sb, "  --%s: %s;\n", v[0], v[1])
	}
	sb.WriteString("}\n")

	for _, cw := range containerWidths {
		fmt.Fprintf(&sb, "@media (min-width: %s) { .container { max-width: %s; } }\n", cw.breakpoint(t.Breakpoints), cw.width)
	}

	return template.CSS(sb.String())
}
