package models

// Page is a slice of results with its total count.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// TotalPages returns the number of pages, never less than one.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Offset returns the row offset for a 1-based page number.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// UserFilter narrows the admin user listing. Nil flags are not applied.
type UserFilter struct {
	IsStaff     *bool
	IsActive    *bool
	IsSuperuser *bool
	IsVerified  *bool
	Search      string
}
