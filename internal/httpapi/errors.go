package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"contractsearch-engine/internal/domain"
	"contractsearch-engine/internal/orchestrator"
	"contractsearch-engine/internal/store"
)

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorEnvelope{Error: apiError{
		Code:      code,
		Message:   msg,
		RequestID: requestID(r.Context()),
	}})
}

// writeMappedError translates service errors into the wire taxonomy. Unknown
// errors become an opaque 500; the cause goes to the engine log only.
func writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.Is(err, orchestrator.ErrNoActiveSources):
		writeError(w, r, http.StatusConflict, "no_active_sources", err.Error())
	case errors.Is(err, orchestrator.ErrNotReady):
		writeError(w, r, http.StatusConflict, "not_ready", err.Error())
	case errors.Is(err, orchestrator.ErrQueueFull):
		writeError(w, r, http.StatusServiceUnavailable, "queue_full", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "search not found")
	case errors.Is(err, store.ErrDuplicateID):
		writeError(w, r, http.StatusConflict, "duplicate_id", err.Error())
	default:
		log.Printf("[httpapi] req=%s internal error: %v", requestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
