package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/query"
	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

var fixtures = map[string]string{
	"/search/movie": `{"page":1,"total_pages":3,"total_results":55,"results":[
		{"id":11,"title":"Star Wars","release_date":"1977-05-25","vote_average":8.2,"poster_path":"/sw.jpg"},
		{"id":1891,"title":"The Empire Strikes Back","release_date":"1980-05-20","vote_average":8.4,"poster_path":""}]}`,
	"/movie/now_playing": `{"page":1,"total_pages":1,"total_results":2,"results":[
		{"id":101,"title":"Fast Movie","release_date":"2026-09-01","vote_average":6.1},
		{"id":102,"title":"Great Movie","release_date":"2026-08-15","vote_average":8.4}]}`,
	"/movie/top_rated": `{"page":1,"total_pages":1,"total_results":1,"results":[
		{"id":201,"title":"Classic","release_date":"1972-03-14","vote_average":8.7}]}`,
	"/movie/upcoming": `{"page":1,"total_pages":1,"total_results":0,"results":[]}`,
	"/movie/11": `{"id":11,"title":"Star Wars","tagline":"A long time ago in a galaxy far, far away...",
		"release_date":"1977-05-25","vote_average":8.2,"runtime":121,"overview":"Princess Leia is captured.",
		"genres":[{"id":12,"name":"Adventure"},{"id":28,"name":"Action"}]}`,
	"/movie/11/recommendations": `{"page":1,"total_pages":1,"total_results":1,"results":[
		{"id":1891,"title":"The Empire Strikes Back","release_date":"1980-05-20","vote_average":8.4}]}`,
	"/movie/11/credits": `{"id":11,"cast":[
		{"id":2,"name":"Mark Hamill","character":"Luke Skywalker","profile_path":"/mh.jpg","order":0},
		{"id":3,"name":"Harrison Ford","character":"Han Solo","order":1}]}`,
	"/movie/11/images": `{"id":11,"posters":[{"file_path":"/p1.jpg","width":1000,"height":1500,"aspect_ratio":0.667}]}`,
	"/movie/11/reviews": `{"page":1,"total_pages":1,"total_results":1,"results":[
		{"id":"r1","author":"critic","author_details":{"rating":9},"content":"A classic.","created_at":"2020-01-02T10:00:00.000Z","url":"https://example.com/r1"}]}`,
}

// fakeTMDB serves canned responses and can hold or fail individual paths
type fakeTMDB struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
	hold  map[string]chan struct{}
	fail  map[string]int
}

func newFakeTMDB(t *testing.T) *fakeTMDB {
	t.Helper()

	f := &fakeTMDB{
		calls: make(map[string]int),
		hold:  make(map[string]chan struct{}),
		fail:  make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)

	return f
}

func (f *fakeTMDB) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	gate := f.hold[r.URL.Path]
	status := f.fail[r.URL.Path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(`{"success":false,"status_message":"Internal error"}`))
		return
	}

	body, ok := fixtures[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"status_message":"The resource you requested could not be found."}`))
		return
	}

	// search echoes the requested page
	if page := r.URL.Query().Get("page"); page != "" && r.URL.Path == "/search/movie" {
		body = strings.Replace(body, `"page":1,`, `"page":`+page+`,`, 1)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakeTMDB) holdPath(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	gate := make(chan struct{})
	f.hold[path] = gate
	return gate
}

func (f *fakeTMDB) failPath(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = status
}

func (f *fakeTMDB) callsFor(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type testEnv struct {
	upstream *fakeTMDB
	server   *Server
	themes   *theme.Store
	filters  *filter.Manager
}

func newTestEnv(t *testing.T, renderTimeout time.Duration, setup ...func(*fakeTMDB)) *testEnv {
	t.Helper()

	upstream := newFakeTMDB(t)
	for _, fn := range setup {
		fn(upstream)
	}

	logger := zerolog.Nop()
	client, err := tmdb.NewClient(upstream.URL, "test-key", logger)
	require.NoError(t, err)

	cache := query.New(query.NewClientResolver(client), logger)
	t.Cleanup(func() { cache.Close() })

	filters := filter.NewManager(logger)
	require.NoError(t, filters.RegisterFilter("acclaimed", "VoteAverage >= 8"))

	themes := theme.NewStore(theme.ModeLight)

	server, err := New(Options{
		RenderTimeout:   renderTimeout,
		MetricsEndpoint: "/metrics",
	}, Deps{
		Coordinator: view.NewCoordinator(cache, logger),
		Filters:     filters,
		Themes:      themes,
		Images:      client.Images(),
		Logger:      logger,
	})
	require.NoError(t, err)

	return &testEnv{upstream: upstream, server: server, themes: themes, filters: filters}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func sectionNames(doc *goquery.Document) []string {
	var names []string
	doc.Find("section[data-section]").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.AttrOr("data-section", ""))
	})
	return names
}

func TestHomePageRendersSearchAndLists(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	rec := env.get(t, "/?q=star+wars")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	html := rec.Body.String()
	assert.Contains(t, html, `history.scrollRestoration = "manual"`)
	assert.Contains(t, html, "window.scrollTo(0, 0)")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	assert.Equal(t, []string{"search", "trending", "top-rated", "upcoming"}, sectionNames(doc))

	search := doc.Find("#section-search")
	assert.Equal(t, "ready", search.AttrOr("data-state", ""))
	assert.Equal(t, "Search Results", strings.TrimSpace(search.Find(".section-heading").Text()))
	assert.Equal(t, 2, search.Find(".movie-card").Length())

	first := search.Find(".movie-card").First()
	assert.Equal(t, "Star Wars", first.Find(".movie-title").Text())
	assert.Equal(t, "/movie/11", first.Find("a").AttrOr("href", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w600_and_h900_bestv2/sw.jpg", first.Find("img").AttrOr("src", ""))
	assert.Equal(t, "Rating: 8 / 10", first.Find(".rating-label").Text())
	assert.Equal(t, 4, first.Find(".star.filled").Length())
	assert.Equal(t, "Release Date: May 25, 1977", first.Find(".release-date").Text())

	// posterless movies fall back to the local placeholder
	second := search.Find(".movie-card").Eq(1)
	assert.Equal(t, tmdb.PlaceholderAsset, second.Find("img").AttrOr("src", ""))

	assert.Contains(t, search.Find(".page-info").Text(), "Page 1 of 3 (55 results)")
	assert.Equal(t, "/?page=2&q=star+wars", search.Find("a.next").AttrOr("href", ""))
	assert.Equal(t, 0, search.Find("a.prev").Length())

	// a ready but empty list is an empty section, not an error
	upcoming := doc.Find("#section-upcoming")
	assert.Equal(t, "ready", upcoming.AttrOr("data-state", ""))
	assert.Equal(t, "No movies found", strings.TrimSpace(upcoming.Find(".empty").Text()))
	assert.Equal(t, 0, upcoming.Find(".section-error").Length())
}

func TestHomePageWithoutQuerySkipsSearch(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	rec := env.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, []string{"trending", "top-rated", "upcoming"}, sectionNames(doc))
	assert.Zero(t, env.upstream.callsFor("/search/movie"))
}

func TestMoviePageIsolatesFailures(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, func(f *fakeTMDB) {
		f.failPath("/movie/11/images", http.StatusInternalServerError)
	})

	rec := env.get(t, "/movie/11")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, []string{"detail", "similar", "credits", "images", "reviews"}, sectionNames(doc))
	assert.Equal(t, "Star Wars - Marquee", doc.Find("title").Text())

	images := doc.Find("#section-images")
	assert.Equal(t, "failed", images.AttrOr("data-state", ""))
	assert.Equal(t, "Error loading movie images", images.Find(".section-error").Text())

	detail := doc.Find("#section-detail")
	assert.Equal(t, "ready", detail.AttrOr("data-state", ""))
	assert.Contains(t, detail.Find("h1").Text(), "Star Wars")
	assert.Contains(t, detail.Find("h1 .year").Text(), "(1977)")
	assert.Equal(t, "A long time ago in a galaxy far, far away...", detail.Find(".tagline").Text())
	assert.Contains(t, detail.Find(".facts").Text(), "Genres: Adventure, Action")
	assert.Contains(t, detail.Find(".facts").Text(), "Runtime: 121m")

	credits := doc.Find("#section-credits")
	assert.Equal(t, 2, credits.Find(".cast-member").Length())
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/mh.jpg", credits.Find("img").First().AttrOr("src", ""))

	reviews := doc.Find("#section-reviews")
	assert.Equal(t, "ready", reviews.AttrOr("data-state", ""))
	assert.Equal(t, "critic (9/10)", reviews.Find(".review-author").Text())
	assert.Equal(t, "January 2, 2020", reviews.Find(".review-date").Text())
	assert.Equal(t, "A classic....", reviews.Find(".review-content").Text())

	similar := doc.Find("#section-similar")
	assert.Equal(t, "/movie/1891", similar.Find(".movie-card a").AttrOr("href", ""))
}

func TestLoadingSectionRendersSkeletonAndSettlesThroughFragment(t *testing.T) {
	var gate chan struct{}
	env := newTestEnv(t, 500*time.Millisecond, func(f *fakeTMDB) {
		gate = f.holdPath("/movie/11/reviews")
	})

	doc := parseHTML(t, env.get(t, "/movie/11"))

	reviews := doc.Find("#section-reviews")
	assert.Equal(t, "loading", reviews.AttrOr("data-state", ""))
	assert.Equal(t, "/fragments/movie/11/reviews", reviews.AttrOr("data-fragment", ""))
	assert.Equal(t, 1, reviews.Find(".skeleton").Length())

	// the slow section holds back nothing else
	assert.Equal(t, "ready", doc.Find("#section-detail").AttrOr("data-state", ""))
	assert.Equal(t, "ready", doc.Find("#section-credits").AttrOr("data-state", ""))

	close(gate)

	require.Eventually(t, func() bool {
		rec := env.get(t, "/fragments/movie/11/reviews")
		if rec.Code != http.StatusOK {
			return false
		}
		frag, err := goquery.NewDocumentFromReader(rec.Body)
		if err != nil {
			return false
		}
		section := frag.Find("section[data-section=reviews]")
		return section.AttrOr("data-state", "") == "ready" && section.Find(".review").Length() == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, env.upstream.callsFor("/movie/11/reviews"))
}

func TestRequestsAreSharedAcrossPages(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	for range 3 {
		require.Equal(t, http.StatusOK, env.get(t, "/movie/11").Code)
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/screens/movie/11").Code)
	require.Equal(t, http.StatusOK, env.get(t, "/fragments/movie/11/credits").Code)

	assert.Equal(t, 1, env.upstream.callsFor("/movie/11"))
	assert.Equal(t, 1, env.upstream.callsFor("/movie/11/credits"))

	// the home page shares the curated lists the same way
	env.get(t, "/")
	env.get(t, "/?q=star+wars")
	assert.Equal(t, 1, env.upstream.callsFor("/movie/now_playing"))
}

func TestHomeFragment(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	rec := env.get(t, "/fragments/home/search?q=star+wars&page=2")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	section := doc.Find("section[data-section=search]")
	assert.Equal(t, "ready", section.AttrOr("data-state", ""))
	assert.Contains(t, section.Find(".page-info").Text(), "Page 2 of 3")
	assert.Equal(t, "/?q=star+wars", section.Find("a.prev").AttrOr("href", ""))
	assert.Equal(t, "/?page=3&q=star+wars", section.Find("a.next").AttrOr("href", ""))
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	tests := []string{
		"/movie/abc",
		"/movie/0",
		"/fragments/movie/11/unknown",
		"/fragments/home/detail",
		"/fragments/home/search",
	}

	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, env.get(t, target).Code)
		})
	}
}

func TestScreenAPI(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, func(f *fakeTMDB) {
		f.failPath("/movie/11/images", http.StatusBadGateway)
	})

	rec := env.get(t, "/api/screens/movie/11")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, "movie", gjson.Get(body, "screen").String())
	assert.True(t, gjson.Get(body, "settled").Bool())

	names := gjson.Get(body, "sections.#.name").Array()
	require.Len(t, names, 5)
	assert.Equal(t, "detail", names[0].String())

	assert.Equal(t, "ready", gjson.Get(body, "sections.0.state").String())
	assert.Equal(t, "Star Wars", gjson.Get(body, "sections.0.value.title").String())
	assert.Equal(t, "Mark Hamill", gjson.Get(body, `sections.#(name=="credits").value.0.name`).String())

	images := gjson.Get(body, `sections.#(name=="images")`)
	assert.Equal(t, "failed", images.Get("state").String())
	assert.Equal(t, "Error loading movie images", images.Get("error").String())
	assert.False(t, images.Get("value").Exists())

	rec = env.get(t, "/api/screens/movie/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScreenAPIReportsLoading(t *testing.T) {
	env := newTestEnv(t, 0, func(f *fakeTMDB) {
		f.holdPath("/movie/now_playing")
	})

	rec := env.get(t, "/api/screens/home")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.False(t, gjson.Get(body, "settled").Bool())
	assert.Equal(t, "loading", gjson.Get(body, `sections.#(name=="trending").state`).String())
}

func TestFilterPresets(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	doc := parseHTML(t, env.get(t, "/?preset=acclaimed"))

	trending := doc.Find("#section-trending .movie-card")
	require.Equal(t, 1, trending.Length())
	assert.Equal(t, "Great Movie", trending.Find(".movie-title").Text())

	assert.Equal(t, "acclaimed", doc.Find(`select[name=preset] option[selected]`).AttrOr("value", ""))

	// ad-hoc expressions work the same way
	doc = parseHTML(t, env.get(t, "/?filter=Year+%3C+2000"))
	assert.Equal(t, 0, doc.Find("#section-trending .movie-card").Length())
	assert.Equal(t, 1, doc.Find("#section-top-rated .movie-card").Length())

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/?preset=missing").Code)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/?filter=VoteAverage+%3E%3E").Code)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/screens/home?preset=missing").Code)
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t, 0)

	doc := parseHTML(t, env.get(t, "/"))
	assert.Equal(t, "light", doc.Find("html").AttrOr("data-theme", ""))
	assert.Contains(t, doc.Find("style").Text(), "--bg: #dfe6e9;")

	req := httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
	req.Header.Set("Referer", "http://localhost:8080/movie/11?from=home")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/movie/11?from=home", rec.Header().Get("Location"))
	assert.Equal(t, theme.ModeDark, env.themes.Active().Mode)

	doc = parseHTML(t, env.get(t, "/"))
	assert.Equal(t, "dark", doc.Find("html").AttrOr("data-theme", ""))
	assert.Contains(t, doc.Find("style").Text(), "--bg: #032541;")
	assert.Contains(t, doc.Find("style").Text(), "@media (min-width: 992px)")

	// JSON clients get the new theme back
	req = httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
	req.Header.Set("Accept", "application/json")
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "light", gjson.Get(rec.Body.String(), "mode").String())
	assert.Equal(t, "576px", gjson.Get(rec.Body.String(), "breakpoints.sm").String())

	// explicit mode
	req = httptest.NewRequest(http.MethodPost, "/theme/toggle?mode=dark", nil)
	rec = env.do(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, theme.ModeDark, env.themes.Active().Mode)

	req = httptest.NewRequest(http.MethodPost, "/theme/toggle?mode=sepia", nil)
	assert.Equal(t, http.StatusBadRequest, env.do(t, req).Code)

	rec = env.get(t, "/api/theme")
	assert.Equal(t, "dark", gjson.Get(rec.Body.String(), "mode").String())
}

func TestBackTo(t *testing.T) {
	tests := []struct {
		referer string
		want    string
	}{
		{"", "/"},
		{"http://localhost/movie/11", "/movie/11"},
		{"http://localhost/?q=star+wars&page=2", "/?q=star+wars&page=2"},
		{"http://localhost//evil.example/path", "/"},
		{"::not a url", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.referer, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/theme/toggle", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.want, backTo(req))
		})
	}
}

func TestStaticHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.get(t, tmdb.PlaceholderAsset)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = env.get(t, "/static/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-fragment")

	rec = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marquee_http_requests_total")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{}, Deps{})
	assert.Error(t, err)

	cache := query.New(query.ResolverFunc(nil), zerolog.Nop())
	t.Cleanup(func() { cache.Close() })

	_, err = New(Options{}, Deps{Coordinator: view.NewCoordinator(cache, zerolog.Nop())})
	assert.Error(t, err)
}

func TestPanicsReportToSentry(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	logger := zerolog.Nop()
	cache := query.New(query.ResolverFunc(func(context.Context, query.Key) (any, error) {
		return nil, errors.New("unused")
	}), logger)
	t.Cleanup(func() { cache.Close() })

	server, err := New(Options{}, Deps{
		Coordinator: view.NewCoordinator(cache, logger),
		Themes:      theme.NewStore(theme.ModeLight),
		Logger:      logger,
		Sentry:      sentry.NewHub(client, sentry.NewScope()),
	})
	require.NoError(t, err)

	server.router.Get("/explode", func(http.ResponseWriter, *http.Request) {
		panic(errors.New("render exploded"))
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Tags["request_id"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "render exploded", events[0].Exception[len(events[0].Exception)-1].Value)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, events, 1)
}
