package database

import (
	"math"
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Page is a requested window over a listing.
type Page struct {
	Number  int
	PerPage int
}

// Pagination is the metadata returned alongside a paged listing.
type Pagination struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

// PageFromQuery reads page/per_page. ok is false when no page was requested,
// in which case callers return the full listing.
func PageFromQuery(q url.Values) (p Page, ok bool) {
	raw := q.Get("page")
	if raw == "" {
		return Page{}, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		n = 1
	}
	per, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || per < 1 {
		per = defaultPerPage
	}
	if per > maxPerPage {
		per = maxPerPage
	}
	return Page{Number: n, PerPage: per}, true
}

// Apply sets skip and limit on find options.
func (p Page) Apply(opts *options.FindOptions) *options.FindOptions {
	return opts.SetSkip(int64((p.Number - 1) * p.PerPage)).SetLimit(int64(p.PerPage))
}

// Meta builds the pagination block for total matching documents.
func (p Page) Meta(total int64) Pagination {
	last := int(math.Ceil(float64(total) / float64(p.PerPage)))
	if last < 1 {
		last = 1
	}
	return Pagination{Total: total, PerPage: p.PerPage, CurrentPage: p.Number, LastPage: last}
}
