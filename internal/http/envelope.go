// Package http exposes the admin and public HTTP surface of spec.md §6:
// the {success, data, error} envelope, route registration against the
// standard library's pattern-based ServeMux, and the two-mechanism auth
// boundary in middleware.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
)

// Envelope is the uniform JSON response shape of spec.md §6.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps a domain error to the status codes of spec.md §7.
func writeDomainError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *domain.ErrNotFound:
		writeError(w, http.StatusNotFound, e.Error())
	case domain.ValidationError:
		writeError(w, http.StatusBadRequest, e.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
