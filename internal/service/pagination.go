package service

import (
	"math"

	"github.com/perks/perks/internal/repository"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page  int
	Limit int
}

// toPage validates the request and converts it to a row window.
// Zero values fall back to the defaults.
func (p PageRequest) toPage() (repository.Page, error) {
	page, limit := p.Page, p.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return repository.Page{}, invalid("page", "must be a positive integer")
	}
	if limit < 1 || limit > MaxLimit {
		return repository.Page{}, invalid("limit", "must be between 1 and %d", MaxLimit)
	}
	// The row offset must fit in an int.
	if page-1 > math.MaxInt/limit {
		return repository.Page{}, invalid("page", "is too large")
	}
	return repository.Page{Limit: limit, Offset: (page - 1) * limit}, nil
}

// ListResult is one page of results with the total match count.
type ListResult[T any] struct {
	Count   int
	Results []T
}

func newListResult[T any](items []T, count int) *ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Count: count, Results: items}
}
