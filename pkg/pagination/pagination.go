package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the catalog page size when none is configured.
	DefaultPageSize = 12
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Page is the metadata returned alongside a page of rows.
type Page struct {
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

// NormalizePageSize enforces the default and maximum page sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// NormalizePage treats anything below one as the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ParsePage reads a 1-based page number, falling back to 1 on blank or garbage input.
func ParsePage(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return NormalizePage(value)
}

// Normalize returns a copy with both fields clamped.
func (p Params) Normalize() Params {
	return Params{
		Page:     NormalizePage(p.Page),
		PageSize: NormalizePageSize(p.PageSize),
	}
}

// Offset is the number of rows to skip for the requested page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Limit is the normalized page size.
func (p Params) Limit() int {
	return NormalizePageSize(p.PageSize)
}

// PageCount is ceil(total / pageSize); zero rows yield zero pages.
func PageCount(total int64, pageSize int) int {
	size := int64(NormalizePageSize(pageSize))
	if total <= 0 {
		return 0
	}
	return int((total + size - 1) / size)
}

// NewPage builds the response metadata for a query.
func NewPage(params Params, total int64) Page {
	n := params.Normalize()
	return Page{
		Page:  n.Page,
		Pages: PageCount(total, n.PageSize),
		Total: total,
	}
}
