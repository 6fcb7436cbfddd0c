package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fundshare/fundshare/internal/shared"
)

const dateLayout = "2006-01-02"

// PageFromQuery reads page and page_size. Sizes above the maximum are clamped.
func PageFromQuery(r *http.Request) (shared.PageRequest, error) {
	page := shared.PageRequest{Page: 1, PageSize: shared.DefaultPageSize}
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return page, fmt.Errorf("page must be a positive integer: %w", shared.ErrInvalidRequest)
		}
		page.Page = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return page, fmt.Errorf("page_size must be a positive integer: %w", shared.ErrInvalidRequest)
		}
		page.PageSize = parsed
	}
	return page.Normalize(), nil
}

// TimeRangeFromQuery reads the optional from/to bounds. Each accepts RFC3339 or a
// plain date; a plain "to" date covers the whole day.
func TimeRangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseBound(r.URL.Query().Get("from"), false)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %v: %w", err, shared.ErrInvalidRequest)
	}
	to, err := parseBound(r.URL.Query().Get("to"), true)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %v: %w", err, shared.ErrInvalidRequest)
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to: %w", shared.ErrInvalidRequest)
	}
	return from, to, nil
}

// Int64Param parses a positive integer path value.
func Int64Param(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, shared.ErrInvalidRequest)
	}
	return id, nil
}

func parseBound(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}
