package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/management"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.List(r.Context())
	if err != nil {
		metrics.RecordRecordOperation("list", false)
		logging.Error("list records", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []management.Record{}
	}
	metrics.RecordRecordOperation("list", true)
	s.sendJSON(w, http.StatusOK, Envelope{Success: true, Data: records})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}

	record, err := s.records.Get(r.Context(), id)
	if errors.Is(err, management.ErrNotFound) {
		metrics.RecordRecordOperation("get", false)
		s.sendError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		metrics.RecordRecordOperation("get", false)
		logging.Error("get record", zap.Int("id", id), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to load record")
		return
	}

	metrics.RecordRecordOperation("get", true)
	s.sendJSON(w, http.StatusOK, Envelope{Success: true, Data: record})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var body management.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	record, err := s.records.Create(r.Context(), &body)
	if err != nil {
		metrics.RecordRecordOperation("create", false)
		logging.Error("create record", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to create record")
		return
	}

	metrics.RecordRecordOperation("create", true)
	s.sendJSON(w, http.StatusCreated, Envelope{Success: true, Data: record, Message: "record created"})
}

// handleUpdateRecord replaces the record with the full request body.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}

	var body management.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	record, err := s.records.Update(r.Context(), id, &body)
	if errors.Is(err, management.ErrNotFound) {
		metrics.RecordRecordOperation("update", false)
		s.sendError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		metrics.RecordRecordOperation("update", false)
		logging.Error("update record", zap.Int("id", id), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to update record")
		return
	}

	metrics.RecordRecordOperation("update", true)
	s.sendJSON(w, http.StatusOK, Envelope{Success: true, Data: record, Message: "record updated"})
}

// handleDeleteRecord deletes the record; the referenced photo is removed
// first, best effort, inside the service.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}

	err := s.records.Delete(r.Context(), id)
	if errors.Is(err, management.ErrNotFound) {
		metrics.RecordRecordOperation("delete", false)
		s.sendError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		metrics.RecordRecordOperation("delete", false)
		logging.Error("delete record", zap.Int("id", id), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	metrics.RecordRecordOperation("delete", true)
	logging.Info("record deleted", zap.Int("id", id))
	s.sendJSON(w, http.StatusOK, Envelope{Success: true, Message: "record deleted"})
}

func (s *Server) recordID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		s.sendError(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}
