package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"southerniot.dev/erp/internal/sequence"
)

// detailResponse is the error payload shape: {"detail": "..."}.
type detailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, detailResponse{Detail: detail})
}

// decodeJSON parses the request body into v. Returns false (after responding
// 400) when the body is not valid JSON.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeStoreError maps a storage-layer error onto the API contract:
// not-found is a normal outcome, identifier conflicts are retryable, pool or
// connectivity exhaustion is service-unavailable, and everything else is a
// generic failure that leaks no store details.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.writeDetail(w, http.StatusNotFound, entity+" not found")

	case errors.Is(err, sequence.ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		s.writeDetail(w, http.StatusConflict, "identifier conflict, please retry")

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn("request gave up waiting on the store",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.writeDetail(w, http.StatusServiceUnavailable, "service temporarily unavailable")

	default:
		s.logger.Error("storage failure",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error. Please try again later.")
	}
}
