package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("get order: %w", shared.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("stock: %w", shared.ErrConflict), http.StatusConflict},
		{"validation", shared.NewValidationError("name", "is required"), http.StatusBadRequest},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("dial tcp 10.0.0.1:5432: refused"))
	require.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, shared.NewValidationError("items", "must have at least 1 entries"))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "must have at least 1 entries", body.Errors["items"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var target struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewPageNeverNull(t *testing.T) {
	page := NewPage[int](nil, shared.PageRequest{Page: 1, PerPage: 10}, 0)
	raw, err := json.Marshal(page)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"items":[]`)
}

func TestQueryAsc(t *testing.T) {
	require.True(t, QueryAsc(url.Values{"order": {"ASC"}}))
	require.False(t, QueryAsc(url.Values{"order": {"desc"}}))
	require.False(t, QueryAsc(url.Values{}))
}
