package common

import (
	"math"
	"net/http"
)

// MaxPerPage caps list requests.
const MaxPerPage = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// ParsePagination extracts page and per-page parameters from query values.
// Both "limit" and "per_page" are accepted.
func ParsePagination(r *http.Request, defaultPerPage int) Pagination {
	q := r.URL.Query()
	p := Pagination{Page: AtoiDefault(q.Get("page"), 1), PerPage: defaultPerPage}
	if p.Page < 1 {
		p.Page = 1
	}
	per := AtoiDefault(q.Get("per_page"), 0)
	if per <= 0 {
		per = AtoiDefault(q.Get("limit"), 0)
	}
	if per > 0 {
		p.PerPage = per
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if p.PerPage > 0 && p.Page > math.MaxInt/p.PerPage {
		p.Page = math.MaxInt / p.PerPage
	}
	return p
}
