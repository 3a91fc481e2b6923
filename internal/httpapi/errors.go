package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of every error response.
type APIError struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, APIError{
		Status:    "error",
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	})
}
