package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cimillas/room-booking/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidQuery        = "invalid_query"
	codeValidationFailed    = "validation_failed"
	codeInvalidID           = "invalid_id"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeRoomNotFound        = "room_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeRoomDisabled        = "room_disabled"
	codeRoomInUse           = "room_in_use"
	codeConflict            = "reservation_conflict"
	codeInvalidTransition   = "invalid_transition"
	codeStaleReservation    = "stale_reservation"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	Field     string   `json:"field,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *log.Logger, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Code:  codeValidationFailed,
			Field: validation.Field,
		})
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrPermission):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, codeRoomNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.As(err, &conflict):
		ids := make([]string, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			ids = append(ids, c.ID)
		}
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     err.Error(),
			Code:      codeConflict,
			Conflicts: ids,
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrStaleReservation):
		writeError(w, http.StatusConflict, codeStaleReservation, err.Error())
	case errors.Is(err, domain.ErrRoomDisabled):
		writeError(w, http.StatusConflict, codeRoomDisabled, err.Error())
	case errors.Is(err, domain.ErrRoomInUse):
		writeError(w, http.StatusConflict, codeRoomInUse, err.Error())
	default:
		if logger != nil {
			logger.Printf("ERROR: unhandled service error: %v", err)
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body, rejecting unknown fields. It writes
// the error response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}
