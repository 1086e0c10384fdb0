package handler

import (
	"encoding/json"
	"net/http"

	dErrors "citamed/pkg/domain-errors"
)

// writeJSON writes v with the given status and a JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON error envelope. The code is the machine-readable
// contract; the message is for humans and carries no internal detail.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError centralizes domain error translation to HTTP responses. Keeping
// it here ensures consistent JSON error envelopes across handlers.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), errorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
