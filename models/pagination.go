package models

// DefaultPageSize is the page size of every list endpoint
const DefaultPageSize = 20

// Pagination describes one page of a list result
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// NewPagination computes page metadata; the last page is never below 1
func NewPagination(page, perPage, total int) Pagination {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	return Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// NormalizePage clamps page to at least 1
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Offset returns the row offset of page
func Offset(page, perPage int) int {
	return (NormalizePage(page) - 1) * perPage
}
