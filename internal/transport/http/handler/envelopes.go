package handler

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-verify-nosql/internal/domain"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// MessageEnvelope carries a status message or an error. RequestID is set on
// errors when the router assigned one.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// AuthEnvelope is the login response.
type AuthEnvelope struct {
	Bearer  string          `json:"Bearer"`
	Session *domain.Session `json:"session"`
}

// SessionEnvelope is the current-session response.
type SessionEnvelope struct {
	Session *domain.Session `json:"session"`
}

// UserEnvelope is the sign-up response.
type UserEnvelope struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, RequestID: chimiddleware.GetReqID(r.Context())})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
