package domain

import "math"

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	// maxPage keeps (page-1)*limit inside a 32-bit int.
	maxPage = math.MaxInt32 / maxPageLimit
)

// PageRequest is the page/limit pair accepted by listing endpoints.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request into a usable range: 1 <= page <= maxPage
// and 1 <= limit <= 100, defaulting to 10 items.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`
	Limit       int `json:"limit"`
}

// NewPagination builds the pagination block for a page of total items.
func NewPagination(p PageRequest, total int) Pagination {
	p = p.Normalize()
	pages := 1
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{CurrentPage: p.Page, TotalPages: pages, Total: total, Limit: p.Limit}
}
