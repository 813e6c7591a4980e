package application

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageQuery struct {
	Page     int
	PageSize int
}

// Validate rejects non-positive pages and sizes outside 1..MaxPageSize.
func (q PageQuery) Validate() error {
	if q.Page < 1 {
		return InvalidInput("page must be 1 or greater", nil)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return InvalidInput("page size must be between 1 and 100", nil)
	}
	return nil
}

func (q PageQuery) Offset() int { return (q.Page - 1) * q.PageSize }

// PagedResult is one page of items plus the total count across all pages.
type PagedResult[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func (p PagedResult[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
