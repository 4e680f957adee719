package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sadopc/wellness/internal/export"
	"github.com/sadopc/wellness/internal/httpx"
	"github.com/sadopc/wellness/internal/metrics"
	"github.com/sadopc/wellness/internal/store"
)

// parseQueryTime accepts RFC3339 timestamps (with or without fractional
// seconds) and bare dates.
func parseQueryTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func records(ms []store.Metric) []metrics.MetricRecord {
	out := make([]metrics.MetricRecord, len(ms))
	for i, m := range ms {
		out[i] = m.MetricRecord
	}
	return out
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseQueryTime(q.Get("startDate"))
	if err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid startDate")
		return
	}
	to, err := parseQueryTime(q.Get("endDate"))
	if err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid endDate")
		return
	}

	ms, err := s.store.ListMetrics(userFrom(r).ID, store.MetricFilter{From: from, To: to})
	if err != nil {
		s.internalError(w, "list metrics", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, records(ms))
}

// decodeMetric reads and validates a record body. It writes the 400 reply
// itself and reports false on failure.
func decodeMetric(w http.ResponseWriter, r *http.Request) (metrics.MetricRecord, bool) {
	var rec metrics.MetricRecord
	if err := httpx.DecodeJSON(w, r, maxRequestBytes, &rec); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid request body")
		return rec, false
	}
	if err := metrics.Validate(rec); err != nil {
		var ve *metrics.ValidationError
		if errors.As(err, &ve) {
			httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid "+ve.Field+": "+ve.Reason)
		} else {
			httpx.RespondError(w, http.StatusBadRequest, err)
		}
		return rec, false
	}
	return rec, true
}

// handleCreateMetric upserts: a second entry for the same day replaces the
// first and keeps its id.
func (s *Server) handleCreateMetric(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeMetric(w, r)
	if !ok {
		return
	}
	m, err := s.store.UpsertMetric(userFrom(r).ID, rec)
	if err != nil {
		s.internalError(w, "upsert metric", err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, m.MetricRecord)
}

func (s *Server) handleGetMetric(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMetric(userFrom(r).ID, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		httpx.RespondErrorString(w, http.StatusNotFound, "Metric not found")
		return
	}
	if err != nil {
		s.internalError(w, "get metric", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, m.MetricRecord)
}

func (s *Server) handleUpdateMetric(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeMetric(w, r)
	if !ok {
		return
	}
	m, err := s.store.UpdateMetric(userFrom(r).ID, mux.Vars(r)["id"], rec)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.RespondErrorString(w, http.StatusNotFound, "Metric not found")
		return
	case errors.Is(err, store.ErrDuplicateDay):
		httpx.RespondErrorString(w, http.StatusConflict, "An entry for this date already exists")
		return
	case err != nil:
		s.internalError(w, "update metric", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, m.MetricRecord)
}

func (s *Server) handleDeleteMetric(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteMetric(userFrom(r).ID, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		httpx.RespondErrorString(w, http.StatusNotFound, "Metric not found")
		return
	}
	if err != nil {
		s.internalError(w, "delete metric", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"message": "Metric removed"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Summary(userFrom(r).ID)
	if err != nil {
		s.internalError(w, "summary", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, st)
}

// handleExportCSV returns every record of the user, newest first, in the
// same CSV layout the client generates locally.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.ListMetrics(userFrom(r).ID, store.MetricFilter{})
	if err != nil {
		s.internalError(w, "export metrics", err)
		return
	}
	if len(ms) == 0 {
		httpx.RespondErrorString(w, http.StatusNotFound, export.MsgNoData)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records(ms), export.DefaultDateLayout); err != nil {
		s.internalError(w, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.CSVFile+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMoodSummary(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Summary(userFrom(r).ID)
	if err != nil {
		s.internalError(w, "summary", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"summary": MoodNarrative(st)})
}
