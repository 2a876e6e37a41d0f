// Package pagination slices ordered result sets into pages.
package pagination

import (
	"context"
	"fmt"
	"math"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 50

	// MaxOffset bounds the number of skipped items
	MaxOffset = math.MaxInt32
)

// Params is a normalized page request
type Params struct {
	PageNumber int
	PageSize   int
}

// NewParams builds page params, clamping the size to maxPageSize.
// Non-positive values fall back to the defaults.
func NewParams(pageNumber, pageSize, maxPageSize int) Params {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if pageNumber < 1 {
		pageNumber = DefaultPageNumber
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if pageNumber-1 > MaxOffset/pageSize {
		pageNumber = MaxOffset/pageSize + 1
	}
	return Params{PageNumber: pageNumber, PageSize: pageSize}
}

// Offset returns the number of items skipped before this page
func (p Params) Offset() int {
	if p.PageNumber < 1 || p.PageSize < 1 {
		return 0
	}
	if p.PageNumber-1 > MaxOffset/p.PageSize {
		return MaxOffset
	}
	return (p.PageNumber - 1) * p.PageSize
}

// Meta is the pagination metadata sent alongside a page
type Meta struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

// Page holds one slice of an ordered source and its metadata
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// Source is an ordered, countable result set.
// Fetch must return items in a stable order.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, limit, offset int) ([]T, error)
}

// TotalPages returns ceil(total / pageSize)
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Paginate counts the source once and fetches a single bounded page. A page
// past the last item is returned empty without fetching.
func Paginate[T any](ctx context.Context, src Source[T], p Params) (*Page[T], error) {
	if p.PageNumber < 1 || p.PageSize < 1 {
		p = NewParams(p.PageNumber, p.PageSize, MaxPageSize)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	var items []T
	if offset := p.Offset(); offset < total {
		items, err = src.Fetch(ctx, p.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page: %w", err)
		}
	}
	if items == nil {
		items = []T{}
	}

	return &Page[T]{
		Items: items,
		Meta: Meta{
			CurrentPage:  p.PageNumber,
			ItemsPerPage: p.PageSize,
			TotalItems:   total,
			TotalPages:   TotalPages(total, p.PageSize),
		},
	}, nil
}

// Map converts the items of a page, keeping its metadata
func Map[T, U any](page *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, fn(item))
	}
	return &Page[U]{Items: out, Meta: page.Meta}
}
