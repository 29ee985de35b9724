package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/gateway"
	"rentops-backend/internal/logger"
)

type errorResponse struct {
	Error        string              `json:"error"`
	Field        string              `json:"field,omitempty"`
	Precondition domain.Precondition `json:"precondition,omitempty"`
	Code         string              `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps a service error onto an HTTP status. Unclassified errors
// are logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	var pe *domain.PreconditionError
	var ge *gateway.Error

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &pe):
		writeJSON(w, http.StatusConflict, errorResponse{Error: pe.Message, Precondition: pe.Precondition})
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.As(err, &ge):
		logger.FromContext(r.Context()).Warn("Payment gateway rejected request", "path", r.URL.Path, "op", ge.Op, "code", ge.Code, "error", ge.Message)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment gateway error", Code: ge.Code})
	default:
		logger.FromContext(r.Context()).Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}
