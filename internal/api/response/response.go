// Package response writes JSON payloads. Endpoint payload shapes are
// defined by their handlers; this package only owns the framing.
package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes an error payload.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: true, Message: message})
}
