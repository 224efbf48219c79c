// Package pagination slices already-sorted lists into pages.
package pagination

import "errors"

// ErrInvalidLimit is returned for a non-positive page size. Callers map it
// onto their own validation error kind.
var ErrInvalidLimit = errors.New("pagination: limit must be positive")

// Window computes the half-open [start, end) index range of a page. Pages
// are 1-based; a page below 1 is treated as the first page. An out-of-range
// page yields an empty window, not an error.
func Window(total, page, limit int) (start, end int, err error) {
	if limit <= 0 {
		return 0, 0, ErrInvalidLimit
	}
	if page < 1 {
		page = 1
	}
	start = (page - 1) * limit
	if start >= total {
		return 0, 0, nil
	}
	end = start + limit
	if end > total {
		end = total
	}
	return start, end, nil
}

// TotalPages is ceil(total/limit); zero when the list is empty.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Page slices one page out of items. The slice aliases the input.
func Page[T any](items []T, page, limit int) ([]T, error) {
	start, end, err := Window(len(items), page, limit)
	if err != nil {
		return nil, err
	}
	return items[start:end], nil
}
