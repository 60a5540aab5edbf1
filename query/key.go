package query

import (
	"fmt"
	"net/url"

	"github.com/s0up4200/marquee/tmdb"
)

// Key identifies one request: a resource kind plus every parameter that
// changes the response. Keys are comparable and used directly as map keys.
type Key struct {
	Kind  tmdb.Kind
	ID    int64
	Query string
	Page  int
}

// String returns the stable textual form kind|id|query|page. The query is
// escaped so distinct keys never share a string.
func (k Key) String() string {
	return fmt.Sprintf("%s|%d|%s|%d", k.Kind, k.ID, url.QueryEscape(k.Query), k.Page)
}

// Params converts the key to API client parameters
func (k Key) Params() tmdb.Params {
	return tmdb.Params{ID: k.ID, Query: k.Query, Page: k.Page}
}

// SearchKey keys a search for query at page; pages below 1 are treated as 1
func SearchKey(query string, page int) Key {
	return Key{Kind: tmdb.KindSearch, Query: query, Page: max(page, 1)}
}

// MovieKey keys a per-movie resource such as detail or credits
func MovieKey(kind tmdb.Kind, movieID int64) Key {
	return Key{Kind: kind, ID: movieID}
}

// ListKey keys one of the curated lists
func ListKey(kind tmdb.Kind) Key {
	return Key{Kind: kind}
}
