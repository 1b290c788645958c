package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/config"
	"monthcal/internal/model"
	"monthcal/internal/schedule"
	"monthcal/internal/storage"
)

func local(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.Local)
}

func newTestServer(t *testing.T, persist storage.Store) (*Server, *schedule.Store) {
	t.Helper()
	n := 0
	store := schedule.New(schedule.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}))
	cfg := config.DefaultConfig()
	return NewServer(cfg, store, persist), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAddAndGetEvent(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	in := model.EventInput{Title: "Lunch", StartDate: local(1, 12, 0), EndDate: local(1, 13, 0)}
	rec := do(t, h, http.MethodPost, "/api/events", encode(t, in))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ev-1", created.ID)
	assert.Equal(t, schedule.DefaultColor, created.Color)

	rec = do(t, h, http.MethodGet, "/api/events/ev-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Lunch", got.Title)

	rec = do(t, h, http.MethodGet, "/api/events/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddEvent_Rejections(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest},
		{"unknown field", `{"title":"x","startDate":"2024-01-01T09:00:00Z","endDate":"2024-01-01T10:00:00Z","bogus":1}`, http.StatusBadRequest},
		{"missing title", `{"startDate":"2024-01-01T09:00:00Z","endDate":"2024-01-01T10:00:00Z"}`, http.StatusBadRequest},
		{"weekly without days", `{"title":"x","startDate":"2024-01-01T09:00:00Z","endDate":"2024-01-01T10:00:00Z","isRecurring":true,"recurrence":{"type":"weekly","interval":1}}`, http.StatusBadRequest},
		{"unknown recurrence", `{"title":"x","startDate":"2024-01-01T09:00:00Z","endDate":"2024-01-01T10:00:00Z","isRecurring":true,"recurrence":{"type":"yearly","interval":1}}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/events", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestListEvents_ByDate(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	until := local(3, 0, 0)
	_, err := store.AddEvent(model.EventInput{
		Title: "Gym", StartDate: local(1, 7, 0), EndDate: local(1, 8, 0),
		IsRecurring: true,
		Recurrence:  &model.Recurrence{Type: model.RecurrenceDaily, Interval: 1, EndDate: &until},
	})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	rec = do(t, h, http.MethodGet, "/api/events?date=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var day []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.Len(t, day, 1)
	assert.Equal(t, "ev-1", day[0].OriginalEventID)

	rec = do(t, h, http.MethodGet, "/api/events?date=2024-02-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/events?date=01/02/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEvent_AppliesToSeries(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	until := local(2, 0, 0)
	_, err := store.AddEvent(model.EventInput{
		Title: "Gym", StartDate: local(1, 7, 0), EndDate: local(1, 8, 0),
		IsRecurring: true,
		Recurrence:  &model.Recurrence{Type: model.RecurrenceDaily, Interval: 1, EndDate: &until},
	})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPatch, "/api/events/ev-1", `{"title":"Swim"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var series []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 2)
	for _, ev := range series {
		assert.Equal(t, "Swim", ev.Title)
	}

	rec = do(t, h, http.MethodPatch, "/api/events/missing", `{"title":"Swim"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/events/ev-1", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveEvent_KeepsDuration(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	_, err := store.AddEvent(model.EventInput{Title: "Call", StartDate: local(5, 9, 0), EndDate: local(5, 9, 30)})
	require.NoError(t, err)

	body := encode(t, map[string]time.Time{"startDate": local(6, 14, 0)})
	rec := do(t, h, http.MethodPost, "/api/events/ev-1/move", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ev, ok := store.Event("ev-1")
	require.True(t, ok)
	assert.True(t, ev.StartDate.Equal(local(6, 14, 0)))
	assert.True(t, ev.EndDate.Equal(local(6, 14, 30)))

	rec = do(t, h, http.MethodPost, "/api/events/ev-1/move", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEvent(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	_, err := store.AddEvent(model.EventInput{Title: "A", StartDate: local(1, 9, 0), EndDate: local(1, 10, 0)})
	require.NoError(t, err)
	_, err = store.AddEvent(model.EventInput{Title: "B", StartDate: local(1, 9, 30), EndDate: local(1, 10, 30)})
	require.NoError(t, err)
	require.Len(t, store.Conflicts(), 1)

	rec := do(t, h, http.MethodDelete, "/api/events/ev-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, store.Len())

	rec = do(t, h, http.MethodGet, "/api/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/events/ev-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConflicts(t *testing.T) {
	s, store := newTestServer(t, nil)

	_, err := store.AddEvent(model.EventInput{Title: "A", StartDate: local(1, 9, 0), EndDate: local(1, 10, 0)})
	require.NoError(t, err)
	_, err = store.AddEvent(model.EventInput{Title: "B", StartDate: local(1, 9, 30), EndDate: local(1, 10, 30)})
	require.NoError(t, err)

	rec := do(t, s.Handler(), http.MethodGet, "/api/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Conflict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ev-2", got[0].EventID)
	assert.Equal(t, []string{"ev-1"}, got[0].ConflictingEventIDs)
}

func TestMonth(t *testing.T) {
	s, store := newTestServer(t, nil)

	_, err := store.AddEvent(model.EventInput{Title: "Review", StartDate: local(15, 10, 0), EndDate: local(15, 11, 0)})
	require.NoError(t, err)

	rec := do(t, s.Handler(), http.MethodGet, "/api/month?date=2024-01-15", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got monthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "January 2024", got.Label)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, got.Weekdays)
	assert.Equal(t, "2023-12-01", got.Prev)
	assert.Equal(t, "2024-02-01", got.Next)

	// Dec 31 through Feb 3.
	require.Len(t, got.Weeks, 5)
	assert.Equal(t, "2023-12-31", got.Weeks[0][0].Date)
	assert.False(t, got.Weeks[0][0].InMonth)
	assert.Equal(t, "2024-02-03", got.Weeks[4][6].Date)

	cell := got.Weeks[2][1]
	assert.Equal(t, "2024-01-15", cell.Date)
	assert.True(t, cell.InMonth)
	require.Len(t, cell.Events, 1)
	assert.Equal(t, "Review", cell.Events[0].Title)
	assert.NotNil(t, got.Weeks[0][0].Events)

	rec = do(t, s.Handler(), http.MethodGet, "/api/month?date=2024-13-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestICS(t *testing.T) {
	s, store := newTestServer(t, nil)

	_, err := store.AddEvent(model.EventInput{Title: "Review", StartDate: local(15, 10, 0), EndDate: local(15, 11, 0)})
	require.NoError(t, err)

	rec := do(t, s.Handler(), http.MethodGet, "/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Review")
}

func TestMutationsArePersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	persist := storage.NewFileStore(path)
	s, _ := newTestServer(t, persist)
	h := s.Handler()

	in := model.EventInput{Title: "Lunch", StartDate: local(1, 12, 0), EndDate: local(1, 13, 0)}
	rec := do(t, h, http.MethodPost, "/api/events", encode(t, in))
	require.Equal(t, http.StatusCreated, rec.Code)

	snap, err := persist.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "Lunch", snap.Events[0].Title)

	rec = do(t, h, http.MethodDelete, "/api/events/ev-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	snap, err = persist.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Events)
}

func TestFailedMutationIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	persist := storage.NewFileStore(path)
	s, _ := newTestServer(t, persist)

	rec := do(t, s.Handler(), http.MethodDelete, "/api/events/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoFileExists(t, path)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// failingStore loads nothing and refuses every save.
type failingStore struct{}

func (failingStore) Load(context.Context) (model.Snapshot, error) { return model.Snapshot{}, nil }
func (failingStore) Save(context.Context, model.Snapshot) error   { return errors.New("disk full") }
func (failingStore) Close() error                                 { return nil }

func TestFailedSaveRollsBack(t *testing.T) {
	s, store := newTestServer(t, failingStore{})
	h := s.Handler()

	in := model.EventInput{Title: "Lunch", StartDate: local(1, 12, 0), EndDate: local(1, 13, 0)}
	for range 2 {
		rec := do(t, h, http.MethodPost, "/api/events", encode(t, in))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, 0, store.Len())
	}

	// Seed directly, then check delete and move are undone too.
	_, err := store.AddEvent(in)
	require.NoError(t, err)
	before := store.Events()

	rec := do(t, h, http.MethodDelete, "/api/events/"+before[0].ID, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := encode(t, map[string]time.Time{"startDate": local(2, 9, 0)})
	rec = do(t, h, http.MethodPost, "/api/events/"+before[0].ID+"/move", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, before, store.Events())
}
