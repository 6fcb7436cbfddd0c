package shared

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 20
	// MaxPageSize caps every listing.
	MaxPageSize = 100
)

// PageRequest selects a window of a newest-first listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps page and page size into their valid ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Limit returns the number of rows to fetch; one more than the page size so
// HasNext can be computed without a count query.
func (p PageRequest) Limit() int {
	return p.Normalize().PageSize + 1
}

// Paging contains metadata for paginated listings.
type Paging struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	NextPage int  `json:"next_page,omitempty"`
	PrevPage int  `json:"prev_page,omitempty"`
}

// Paginate trims a limit+1 result set and computes paging metadata.
func Paginate[T any](rows []T, req PageRequest) ([]T, Paging) {
	req = req.Normalize()
	hasNext := len(rows) > req.PageSize
	if hasNext {
		rows = rows[:req.PageSize]
	}
	paging := Paging{Page: req.Page, PageSize: req.PageSize, HasNext: hasNext}
	if req.Page > 1 {
		paging.PrevPage = req.Page - 1
	}
	if hasNext {
		paging.NextPage = req.Page + 1
	}
	return rows, paging
}
