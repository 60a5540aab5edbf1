package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

// homeParams are the listing page's query parameters
type homeParams struct {
	Query  string
	Page   int
	Preset string
	Filter string
}

func parseHomeParams(r *http.Request) homeParams {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return homeParams{
		Query:  strings.TrimSpace(q.Get("q")),
		Page:   page,
		Preset: q.Get("preset"),
		Filter: q.Get("filter"),
	}
}

// values encodes p back into query parameters, leaving out defaults
func (p homeParams) values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Preset != "" {
		v.Set("preset", p.Preset)
	}
	if p.Filter != "" {
		v.Set("filter", p.Filter)
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if encoded := v.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

func (p homeParams) pageURL(page int) string {
	p.Page = page
	return withQuery("/", p.values())
}

func (p homeParams) fragmentURL(section view.SectionName) string {
	return withQuery("/fragments/home/"+url.PathEscape(string(section)), p.values())
}

// homeSpec builds the listing screen. An explicit filter or preset wins over
// the configured default.
func (s *Server) homeSpec(p homeParams) (view.ScreenSpec, error) {
	expression := p.Filter
	if expression == "" && p.Preset == "" {
		expression = s.opts.DefaultFilter
	}

	compiled, err := s.deps.Filters.Resolve(p.Preset, expression)
	if err != nil {
		return view.ScreenSpec{}, err
	}

	var f filter.Filter
	if compiled != nil {
		f = compiled
	}
	return view.HomeScreen(p.Query, p.Page, f), nil
}

func parseMovieID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func movieFragmentURL(movieID int64) func(view.SectionName) string {
	return func(section view.SectionName) string {
		return fmt.Sprintf("/fragments/movie/%d/%s", movieID, url.PathEscape(string(section)))
	}
}

// settle mounts spec for the duration of the request and returns the section
// states after at most the render timeout
func (s *Server) settle(r *http.Request, spec view.ScreenSpec) []view.SectionState {
	screen := s.deps.Coordinator.Mount(spec)
	defer screen.Unmount()

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RenderTimeout)
	defer cancel()

	if err := screen.Settle(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		hlog.FromRequest(r).Debug().Err(err).Str("screen", string(spec.Name)).Msg("Rendering before every section settled")
	}

	snapshot := screen.Snapshot()
	for _, section := range snapshot {
		renderedSections.WithLabelValues(string(spec.Name), section.State.State.String()).Inc()
	}
	return snapshot
}

func (s *Server) sectionViews(snapshot []view.SectionState, fragment func(view.SectionName) string) []sectionView {
	views := make([]sectionView, 0, len(snapshot))
	for _, section := range snapshot {
		views = append(views, newSectionView(section, fragment(section.Name)))
	}
	return views
}

// linkPaging fills in the previous and next page links of a search section
func linkPaging(sv *sectionView, p homeParams) {
	if sv.Paging == nil {
		return
	}
	if sv.Paging.Page > 1 {
		sv.Paging.PrevURL = p.pageURL(sv.Paging.Page - 1)
	}
	if sv.Paging.Page < sv.Paging.TotalPages {
		sv.Paging.NextURL = p.pageURL(sv.Paging.Page + 1)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	p := parseHomeParams(r)
	spec, err := s.homeSpec(p)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid filter: %v", err), http.StatusBadRequest)
		return
	}

	snapshot := s.settle(r, spec)

	title := "Marquee"
	if p.Query != "" {
		title = fmt.Sprintf("%s - Marquee", p.Query)
	}

	data := s.newPage(title)
	data.Query = p.Query
	data.ActivePreset = p.Preset
	data.Sections = s.sectionViews(snapshot, p.fragmentURL)
	for i := range data.Sections {
		linkPaging(&data.Sections[i], p)
	}

	s.renderPage(w, r, "home", data)
}

func (s *Server) handleMovie(w http.ResponseWriter, r *http.Request) {
	movieID, ok := parseMovieID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	snapshot := s.settle(r, view.DetailScreen(movieID))

	title := "Movie - Marquee"
	for _, section := range snapshot {
		if detail, ok := section.State.Value.(*tmdb.MovieDetail); ok && section.State.IsReady() {
			title = fmt.Sprintf("%s - Marquee", detail.Title)
		}
	}

	data := s.newPage(title)
	data.Sections = s.sectionViews(snapshot, movieFragmentURL(movieID))

	s.renderPage(w, r, "movie", data)
}

func (s *Server) handleHomeFragment(w http.ResponseWriter, r *http.Request) {
	p := parseHomeParams(r)
	spec, err := s.homeSpec(p)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid filter: %v", err), http.StatusBadRequest)
		return
	}

	spec, ok := spec.Only(view.SectionName(chi.URLParam(r, "section")))
	if !ok {
		http.NotFound(w, r)
		return
	}

	snapshot := s.settle(r, spec)
	sv := newSectionView(snapshot[0], p.fragmentURL(snapshot[0].Name))
	linkPaging(&sv, p)

	s.renderSection(w, r, sv)
}

func (s *Server) handleMovieFragment(w http.ResponseWriter, r *http.Request) {
	movieID, ok := parseMovieID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	spec, ok := view.DetailScreen(movieID).Only(view.SectionName(chi.URLParam(r, "section")))
	if !ok {
		http.NotFound(w, r)
		return
	}

	snapshot := s.settle(r, spec)
	s.renderSection(w, r, newSectionView(snapshot[0], movieFragmentURL(movieID)(snapshot[0].Name)))
}

// screenResponse is the JSON form of a mounted screen
type screenResponse struct {
	Screen   string            `json:"screen"`
	Settled  bool              `json:"settled"`
	Sections []sectionResponse `json:"sections"`
}

type sectionResponse struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func newScreenResponse(name view.ScreenName, snapshot []view.SectionState) screenResponse {
	resp := screenResponse{
		Screen:   string(name),
		Settled:  true,
		Sections: make([]sectionResponse, 0, len(snapshot)),
	}

	for _, section := range snapshot {
		sr := sectionResponse{
			Name:  string(section.Name),
			State: section.State.State.String(),
		}
		switch {
		case section.State.IsLoading():
			resp.Settled = false
		case section.State.IsFailed():
			sr.Error = view.ErrorMessage(section.Name)
		default:
			sr.Value = section.State.Value
		}
		resp.Sections = append(resp.Sections, sr)
	}

	return resp
}

func (s *Server) handleHomeAPI(w http.ResponseWriter, r *http.Request) {
	spec, err := s.homeSpec(parseHomeParams(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, newScreenResponse(spec.Name, s.settle(r, spec)))
}

func (s *Server) handleMovieAPI(w http.ResponseWriter, r *http.Request) {
	movieID, ok := parseMovieID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invalid movie id"})
		return
	}

	spec := view.DetailScreen(movieID)
	writeJSON(w, http.StatusOK, newScreenResponse(spec.Name, s.settle(r, spec)))
}

func (s *Server) handleThemeAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Themes.Active())
}

// handleThemeToggle flips the theme, or sets the mode named in the form, and
// sends the browser back to the page it came from
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	var active theme.Theme
	if requested := r.FormValue("mode"); requested != "" {
		mode, err := theme.ParseMode(requested)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		active = s.deps.Themes.Set(mode)
	} else {
		active = s.deps.Themes.Toggle()
	}
	themeToggles.Inc()

	hlog.FromRequest(r).Info().Str("mode", string(active.Mode)).Msg("Switched theme")

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, active)
		return
	}

	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the local path of the referring page, or "/"
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	return ref.RequestURI()
}
