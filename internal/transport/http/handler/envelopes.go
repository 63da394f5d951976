package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farmgate/farmgate-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPEnvelope wraps challenge-request responses.
type OTPEnvelope struct {
	Message    string `json:"message"`
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
}

// AuthEnvelope wraps responses that issue a token pair.
type AuthEnvelope struct {
	AccessToken  string                `json:"access_token,omitempty"`
	RefreshToken string                `json:"refresh_token,omitempty"`
	Farmer       *domain.PublicProfile `json:"farmer,omitempty"`
	Message      string                `json:"message,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps a service error to its HTTP status. OTP failures,
// token reuse, and validation problems are all client errors; only unknown
// resources are 404 and only infrastructure failures are 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOTPNotFound),
		errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPMismatch),
		errors.Is(err, domain.ErrOTPWrongPurpose),
		errors.Is(err, domain.ErrTokenReused),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDispatchFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
