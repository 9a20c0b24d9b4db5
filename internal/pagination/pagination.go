// Package pagination normalizes list queries and computes page metadata.
//
// Raw query parameters are never trusted: every field is coerced into a
// safe value by ParseQuery/Normalize before it reaches a repository. In
// particular SortColumn only ever returns a column name from a fixed
// allow-list, so repositories can interpolate it into ORDER BY.
package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultSortBy = "createdAt"
	SortAsc       = "ASC"
	SortDesc      = "DESC"
)

// sortColumns maps the public sort keys to storage columns.
var sortColumns = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Query is a normalized list request.
type Query struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string // one of name, createdAt, updatedAt
	SortOrder string // ASC or DESC
}

// ParseQuery reads page, limit, search, sortBy and sortOrder from URL query
// values and normalizes them. It never fails: unusable values fall back to
// their defaults.
func ParseQuery(values url.Values) Query {
	q := Query{
		Page:      atoiOrZero(values.Get("page")),
		Limit:     atoiOrZero(values.Get("limit")),
		Search:    values.Get("search"),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
	}
	return q.Normalize()
}

// Normalize returns a copy of q with every field coerced into range.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	// Keep (Page-1)*Limit representable.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	q.Search = strings.TrimSpace(q.Search)
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = DefaultSortBy
	}
	if strings.ToUpper(q.SortOrder) == SortAsc {
		q.SortOrder = SortAsc
	} else {
		q.SortOrder = SortDesc
	}
	return q
}

// Offset is the number of rows to skip for the current page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// SortColumn returns the storage column for SortBy. Unknown keys resolve to
// the created_at column.
func (q Query) SortColumn() string {
	if col, ok := sortColumns[q.SortBy]; ok {
		return col
	}
	return sortColumns[DefaultSortBy]
}

// Direction returns the SQL keyword for SortOrder.
func (q Query) Direction() string {
	if q.SortOrder == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// EscapeLike escapes LIKE wildcards so search text matches literally.
// The escape character is a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Meta describes where a page sits within the full result set.
type Meta struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

func NewMeta(q Query, total int) Meta {
	totalPages := 0
	if q.Limit > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	return Meta{
		Page:            q.Page,
		Limit:           q.Limit,
		TotalItems:      total,
		TotalPages:      totalPages,
		HasNextPage:     q.Page < totalPages,
		HasPreviousPage: q.Page > 1,
	}
}

// Result is one page of items plus its metadata.
type Result[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
