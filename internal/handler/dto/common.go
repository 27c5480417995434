// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ListResponse is the envelope shared by every paginated endpoint.
// Total mirrors Count so clients can compute ceil(total/limit) pages.
type ListResponse[T any] struct {
	Count   int `json:"count"`
	Total   int `json:"total"`
	Results []T `json:"results"`
}

// NewListResponse converts items with fn and wraps them in a ListResponse.
func NewListResponse[S, T any](items []S, count int, fn func(S) T) ListResponse[T] {
	results := make([]T, 0, len(items))
	for _, item := range items {
		results = append(results, fn(item))
	}
	return ListResponse[T]{Count: count, Total: count, Results: results}
}

// NullableInt distinguishes an absent field from an explicit null.
type NullableInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableInt) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
