package engine

// Page is one slice of a filtered list.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// Paginate returns the 1-based page of items. Pages past the end are empty.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(items)
	p := Page[T]{
		Items:    []T{},
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    total / pageSize,
	}
	if total%pageSize != 0 {
		p.Pages++
	}

	if page > p.Pages {
		return p
	}
	start := (page - 1) * pageSize
	stop := total
	if total-start > pageSize {
		stop = start + pageSize
	}
	p.Items = items[start:stop]
	return p
}
