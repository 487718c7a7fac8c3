// Package pagination windows ordered list queries into 1-based pages.
package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100

	// MaxPage keeps Offset representable for every page size
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Params is a clamped page request
type Params struct {
	Page    int
	PerPage int
}

// New clamps page to [1, MaxPage] and perPage to [1, MaxPerPage]
func New(page, perPage int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// FromRequest reads page and per_page query parameters.
// Missing or malformed values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	return New(intOr(q.Get("page"), DefaultPage), intOr(q.Get("per_page"), DefaultPerPage))
}

// Offset is the number of rows to skip
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the number of rows to fetch
func (p Params) Limit() int {
	return p.PerPage
}

// Meta describes where a page sits in the full result
type Meta struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	PrevPage   *int `json:"prev_page"`
	NextPage   *int `json:"next_page"`
}

// NewMeta computes page metadata for total rows
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PerPage - 1) / p.PerPage
	}

	meta := Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    p.Page > 1,
		HasNext:    p.Page < totalPages,
	}
	if meta.HasPrev {
		prev := p.Page - 1
		meta.PrevPage = &prev
	}
	if meta.HasNext {
		next := p.Page + 1
		meta.NextPage = &next
	}
	return meta
}

// Page is a window of items plus its metadata
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// NewPage pairs items with metadata; nil items become an empty slice
func NewPage[T any](items []T, p Params, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: NewMeta(p, total)}
}

func intOr(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
