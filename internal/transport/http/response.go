package http

import (
	"encoding/json"
	"log"
	"net/http"

	"learn-quiz-service/internal/domain"
)

type errorBody struct {
	Code    domain.Kind `json:"code"`
	Message string      `json:"message"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps err onto the status and wire code of its kind. The message
// is the underlying sentinel so clients can tell e.g. an expired token apart
// from a reused one.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	msg := "internal error"
	if s := domain.Sentinel(err); s != nil {
		msg = s.Error()
	}
	if kind == domain.KindInternal {
		log.Printf("internal error: %v", err)
	}
	respondJSON(w, statusFor(kind), errorEnvelope{Error: errorBody{Code: kind, Message: msg}})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
