package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"monthcal/internal/grid"
	"monthcal/internal/ics"
	"monthcal/internal/model"
	"monthcal/internal/schedule"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// decodeStrict decodes a JSON body into v, rejecting unknown fields.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &model.ValidationError{Reason: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// parseDay reads a YYYY-MM-DD query value in local time. An empty value
// means today.
func parseDay(v string) (time.Time, error) {
	if v == "" {
		return grid.StartOfDay(time.Now()), nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// handleListEvents returns all events, or those starting on ?date=.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("date")

	s.mu.Lock()
	var events []model.Event
	if q == "" {
		events = s.store.Events()
	} else if day, err := parseDay(q); err != nil {
		s.mu.Unlock()
		writeEngineError(w, err)
		return
	} else {
		events = s.store.EventsOn(day)
	}
	s.mu.Unlock()

	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeStrict(r, &in); err != nil {
		writeEngineError(w, err)
		return
	}

	var created model.Event
	err := s.mutate(r.Context(), func(st *schedule.Store) error {
		ev, err := st.AddEvent(in)
		created = ev
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	ev, ok := s.store.Event(id)
	s.mu.Unlock()

	if !ok {
		writeEngineError(w, &model.NotFoundError{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch model.EventPatch
	if err := decodeStrict(r, &patch); err != nil {
		writeEngineError(w, err)
		return
	}

	var series []model.Event
	err := s.mutate(r.Context(), func(st *schedule.Store) error {
		if err := st.UpdateEvent(id, patch); err != nil {
			return err
		}
		series = st.Series(id)
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.mutate(r.Context(), func(st *schedule.Store) error {
		return st.DeleteEvent(id)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	StartDate time.Time `json:"startDate"`
}

func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req moveRequest
	if err := decodeStrict(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}

	var series []model.Event
	err := s.mutate(r.Context(), func(st *schedule.Store) error {
		if err := st.MoveEvent(id, req.StartDate); err != nil {
			return err
		}
		series = st.Series(id)
		return nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleConflicts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	conflicts := s.store.Conflicts()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, conflicts)
}

// dayCell is one square of the month grid.
type dayCell struct {
	Date    string        `json:"date"`
	InMonth bool          `json:"inMonth"`
	IsToday bool          `json:"isToday"`
	Events  []model.Event `json:"events"`
}

// monthResponse is the JSON response shape for /api/month.
type monthResponse struct {
	Label    string      `json:"label"`
	Weekdays []string    `json:"weekdays"`
	Prev     string      `json:"prev"`
	Next     string      `json:"next"`
	Weeks    [][]dayCell `json:"weeks"`
}

// handleMonth returns the Sunday-first grid for the month of ?date=
// (default: today) with each day's events.
//
// GET /api/month?date=2024-01-15
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	ref, err := parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := monthResponse{
		Label:    grid.MonthLabel(ref),
		Weekdays: grid.WeekdayLabels(),
		Prev:     grid.PrevMonth(ref).Format(dateLayout),
		Next:     grid.NextMonth(ref).Format(dateLayout),
	}

	days := grid.DaysForMonthView(ref)

	s.mu.Lock()
	var week []dayCell
	for _, day := range days {
		events := s.store.EventsOn(day)
		if events == nil {
			events = []model.Event{}
		}
		week = append(week, dayCell{
			Date:    day.Format(dateLayout),
			InMonth: grid.SameMonth(day, ref),
			IsToday: grid.IsToday(day),
			Events:  events,
		})
		if len(week) == 7 {
			resp.Weeks = append(resp.Weeks, week)
			week = nil
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()

	var buf bytes.Buffer
	if err := ics.Export(&buf, snap.Events, time.Now()); err != nil {
		writeEngineError(w, fmt.Errorf("export ics: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monthcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
