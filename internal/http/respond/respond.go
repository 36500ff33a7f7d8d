package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the error body shared by every endpoint.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON writes payload as the response body with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", slog.Any("error", err))
	}
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Code: status, Message: message})
}
