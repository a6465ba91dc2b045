// Package paging slices in-memory lists into fixed-size, 1-based pages.
package paging

// PageSize is the default number of rows per table page.
const PageSize = 10

// Page is one window of a list plus the navigation bounds around it.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	Total      int
	TotalPages int
	// First and Last are the 1-based positions of the window, zero when empty.
	First int
	Last  int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Prev returns the previous page number, clamped at 1.
func (p Page[T]) Prev() int { return Prev(p.Number) }

// Next returns the next page number, clamped at TotalPages.
func (p Page[T]) Next() int { return Next(p.Number, p.TotalPages) }

// TotalPages is ceil(count/size) with a minimum of one page.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// Clamp keeps page inside [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Next moves forward one page unless already on the last one.
func Next(page, totalPages int) int {
	if page < totalPages {
		return page + 1
	}
	return Clamp(page, totalPages)
}

// Prev moves back one page unless already on the first one.
func Prev(page int) int {
	if page > 1 {
		return page - 1
	}
	return 1
}

// Slice returns the half-open window [(page-1)*size, page*size) of items.
// Out-of-range pages are clamped rather than rejected.
func Slice[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	total := len(items)
	pages := TotalPages(total, size)
	page = Clamp(page, pages)

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	p := Page[T]{
		Items:      items[start:end],
		Number:     page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
	}
	if total > 0 {
		p.First = start + 1
		p.Last = end
	}
	return p
}
