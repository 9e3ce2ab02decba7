package domain

import "strings"

// SortDirection orders listing results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection normalizes a direction string, defaulting to ascending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(s, string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// PageRequest describes a zero-based window over an ordered result set.
type PageRequest struct {
	Page      int
	Size      int
	Direction SortDirection
}

// NewPageRequest clamps page and size to sane values.
func NewPageRequest(page, size int, direction string) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	return PageRequest{Page: page, Size: size, Direction: ParseSortDirection(direction)}
}

// Page is a windowed slice of a larger ordered result set. TotalElements
// always reports the full count so clients can compute page counts even
// when Content is empty.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// Paginate slices items to the requested window. A start index beyond the
// end yields an empty page that still carries the true total.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	total := len(items)
	start := req.Page * req.Size
	var content []T
	if start < total {
		end := start + req.Size
		if end > total {
			end = total
		}
		content = append(content, items[start:end]...)
	} else {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: int64(total),
		TotalPages:    totalPages(int64(total), req.Size),
	}
}

// PageOf assembles a page from pre-sliced content and a known total,
// for repositories that window results at the query level.
func PageOf[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, req.Size),
	}
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	pages := total / int64(size)
	if total%int64(size) != 0 {
		pages++
	}
	return int(pages)
}
