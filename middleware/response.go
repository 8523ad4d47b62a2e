package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error envelope shared by every JSON endpoint.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteError writes a JSON error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Success: false, Message: message, Code: code})
}
