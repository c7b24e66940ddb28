package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows []TimelineRow
	err  error
	last WindowParams
}

func (s *stubTimelineRepo) TimelineWindow(_ context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.last = arg
	return s.rows, s.err
}

func row(at, action, entity, id string) TimelineRow {
	ts, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{At: ts, Actor: "owner", Action: action, Entity: entity, EntityID: id}
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		row("2024-03-10T10:00:00Z", "order.update", "order", "o-1"),
		row("2024-03-09T09:00:00Z", "order.create", "order", "o-1"),
		row("2024-03-08T08:00:00Z", "product.restock", "product", "p-1"),
	}}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Entity:   " order ",
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 3, result.Paging.NextPage)
	require.EqualValues(t, 3, repo.last.LimitRows)
	require.EqualValues(t, 2, repo.last.OffsetRows)
	require.True(t, repo.last.FromAt.Valid)
	require.False(t, repo.last.ToAt.Valid)
	require.Equal(t, "order", repo.last.Entity.String)
	require.False(t, repo.last.Actor.Valid)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 1000})
	require.NoError(t, err)
	require.NotNil(t, result.Rows)
	require.False(t, result.Paging.HasNext)
	require.EqualValues(t, maxPageSize+1, repo.last.LimitRows)
}

func TestTimelineRepositoryError(t *testing.T) {
	_, err := NewService(&stubTimelineRepo{err: errors.New("boom")}).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
	_, err = NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
}

func TestTimelineHandler(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{row("2024-03-10T10:00:00Z", "invoice.payment", "invoice", "i-1")}}
	r := chi.NewRouter()
	NewHandler(nil, NewService(repo)).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?entity=invoice&to=2024-03-10", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"entity_id":"i-1"`)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), repo.last.ToAt.Time)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
