// file: internal/httputils/response.go

// Package httputils holds small helpers for the HTTP side of the server.
package httputils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}, logger logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.OrNoop(logger).Error("Failed to encode JSON response.",
			"error", errors.Wrap(err, "encode"), "data_type", fmt.Sprintf("%T", v))
	}
}

// WriteRaw writes an already encoded JSON document.
func WriteRaw(w http.ResponseWriter, status int, body []byte, logger logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.OrNoop(logger).Debug("Failed to write response body.", "error", err)
	}
}

// WriteError writes a plain JSON error document for non-JSON-RPC failures such as an
// oversized or unreadable request body.
func WriteError(w http.ResponseWriter, status int, message string, logger logging.Logger) {
	WriteJSON(w, status, map[string]string{"error": message}, logger)
}
