package httpx

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// QueryFloat parses an optional float parameter.
func QueryFloat(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, shared.NewValidationError(key, "must be a number")
	}
	return &v, nil
}

// QueryInt parses an integer parameter with a default.
func QueryInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

// QueryDate parses an optional date (2006-01-02) or RFC3339 timestamp.
func QueryDate(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, shared.NewValidationError(key, "must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}

// QuerySort reads sort and order parameters. order=desc flips direction.
func QuerySort(q url.Values) (string, bool) {
	return strings.TrimSpace(q.Get("sort")), strings.EqualFold(q.Get("order"), "desc")
}

// QueryAsc reports an explicit order=asc, for lists whose default is newest first.
func QueryAsc(q url.Values) bool {
	return strings.EqualFold(q.Get("order"), "asc")
}
