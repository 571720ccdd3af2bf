package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

var statusByCode = map[domain.Code]int{
	domain.CodeInvalidArgument:            http.StatusBadRequest,
	domain.CodeNotFound:                   http.StatusNotFound,
	domain.CodeDuplicateActiveNegotiation: http.StatusConflict,
	domain.CodeInvalidTransition:          http.StatusConflict,
	domain.CodeExpiredSession:             http.StatusGone,
	domain.CodeNotAuthorized:              http.StatusForbidden,
	domain.CodeNDARequired:                http.StatusForbidden,
	domain.CodeContactLeakDetected:        http.StatusUnprocessableEntity,
	domain.CodeInsufficientDepositFunds:   http.StatusPaymentRequired,
	domain.CodeSettlementFailed:           http.StatusBadGateway,
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeDomainError renders a service error. Only domain errors expose their
// metadata; anything else is reported as an internal error.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		WriteError(w, http.StatusInternalServerError, string(domain.CodeUnknown), domain.UserMessage(err), nil)
		return
	}
	var details any
	if len(de.Metadata) > 0 {
		details = de.Metadata
	}
	WriteError(w, StatusFor(err), string(de.Code), domain.UserMessage(err), details)
}
