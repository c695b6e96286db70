package utils

import "math"

// Pagination represents the pagination details.
type Pagination struct {
	TotalItems  int `json:"totalItems"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
}

// CreatePagination creates a Pagination object.
func CreatePagination(totalItems, page, pageSize int) *Pagination {
	if pageSize <= 0 {
		pageSize = 10 // Default page size
	}
	if page <= 0 {
		page = 1 // Default page
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))

	return &Pagination{
		TotalItems:  totalItems,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	}
}

// PageBounds returns the [start, end) slice bounds of page p for totalItems
// items. Both bounds stay within [0, totalItems] for any page and size.
func PageBounds(totalItems int, p *Pagination) (int, int) {
	if totalItems <= 0 || p.PageSize <= 0 {
		return 0, 0
	}
	skipped := p.CurrentPage - 1
	if skipped < 0 {
		skipped = 0
	}
	start := totalItems
	if skipped <= totalItems/p.PageSize {
		start = skipped * p.PageSize
		if start > totalItems {
			start = totalItems
		}
	}
	end := totalItems
	if p.PageSize < totalItems-start {
		end = start + p.PageSize
	}
	return start, end
}
