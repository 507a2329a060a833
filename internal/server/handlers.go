package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/store"
)

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req models.InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	position, err := s.store.Insert(r.Context(), req.Text)
	if err != nil {
		s.respondStoreError(w, "insert failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.InsertResponse{Position: position, Status: "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.defaultK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("k", req.Limit()))

	matches, err := s.store.Search(r.Context(), req.Query, req.Limit())
	if err != nil {
		s.respondStoreError(w, "query failed", err)
		return
	}
	resp := models.QueryResponse{Results: make([]string, len(matches))}
	for i, m := range matches {
		resp.Results[i] = m.Text
	}
	if req.WithScores {
		resp.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			resp.Matches[i] = models.Match{Position: m.Position, Text: m.Text, Score: m.Score}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "position must be an integer")
		return
	}
	text, err := s.store.Get(position)
	if err != nil {
		if errors.Is(err, store.ErrPositionNotFound) {
			s.respondError(w, http.StatusNotFound, "record not found")
			return
		}
		s.respondStoreError(w, "get record failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.RecordResponse{Position: position, Text: text})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.store.Status()
	resp := models.StatusResponse{
		InstanceID: st.InstanceID,
		Records:    st.Records,
		Dimensions: st.Dimensions,
		State:      string(st.State),
		IndexType:  st.IndexType,
		Model:      st.Model,
		Halted:     st.Halted,
		HaltReason: st.HaltReason,
	}
	if verify, _ := strconv.ParseBool(r.URL.Query().Get("verify")); verify {
		aligned := true
		if err := s.store.Verify(); err != nil {
			s.logger.Error("store verification failed", zap.Error(err))
			aligned = false
		}
		resp.Aligned = &aligned
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusClientClosedRequest is nginx's code for a client that went away mid-request.
const statusClientClosedRequest = 499

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStoreHalted):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrEmbedding):
		return http.StatusBadGateway
	default:
		// ErrDimensionMismatch, ErrPositionNotFound during a query, misalignment.
		return http.StatusInternalServerError
	}
}

func (s *Server) respondStoreError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
