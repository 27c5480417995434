package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/perks/perks/internal/service"
)

// queryError reports an unparseable query parameter.
type queryError struct {
	param string
	value string
	want  string
}

func (e *queryError) Error() string {
	return fmt.Sprintf("%s: %q is not %s", e.param, e.value, e.want)
}

// parsePage reads page and limit. Missing values fall back to the defaults.
func parsePage(q url.Values) (service.PageRequest, error) {
	var req service.PageRequest

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, &queryError{"page", raw, "a positive integer"}
		}
		req.Page = page
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > service.MaxLimit {
			return req, &queryError{"limit", raw, fmt.Sprintf("an integer between 1 and %d", service.MaxLimit)}
		}
		req.Limit = limit
	}

	return req, nil
}

// parseBool reads an optional boolean parameter.
func parseBool(q url.Values, key string) (*bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	}
	return nil, &queryError{key, raw, "true or false"}
}

// parseInt64 reads an optional integer parameter.
func parseInt64(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &queryError{key, raw, "an integer"}
	}
	return &v, nil
}
