package shared

import "math"

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Page is the envelope returned by list endpoints.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PageRequest is a normalised page/limit pair.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page and limit to sane values.
func NewPageRequest(page, limit int) PageRequest {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Total: total, Page: req.Page, Limit: limit, TotalPages: totalPages}
}

// NewPage wraps rows with their pagination metadata. A nil slice is encoded as [].
func NewPage[T any](rows []T, req PageRequest, total int) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Pagination: NewPagination(req, total)}
}
