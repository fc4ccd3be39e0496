package common

import (
	"net/http"
	"strconv"
	"strings"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ParsePagination extracts page and limit from the query. Missing, malformed
// or non-positive values fall back to page 1 and defaultPerPage; limit is
// capped at maxPerPage when that is positive.
func ParsePagination(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	page, perPage = 1, defaultPerPage
	q := r.URL.Query()
	if p, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(strings.TrimSpace(q.Get("limit"))); err == nil && l > 0 {
		perPage = l
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// NewPagination computes the metadata for total items split in pages of perPage.
// An empty result still reports one page.
func NewPagination(page, perPage, total int) Pagination {
	perPage = max(perPage, 1)
	page = max(page, 1)
	pages := max((total+perPage-1)/perPage, 1)
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// Window returns the [start, end) slice bounds of the current page within
// total items. Pages past the end yield an empty window.
func (p Pagination) Window() (start, end int) {
	start = min((p.Page-1)*p.PerPage, p.TotalItems)
	end = min(start+p.PerPage, p.TotalItems)
	return start, end
}
