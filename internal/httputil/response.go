// Package httputil holds the JSON response helpers shared by the viewer's
// HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/kitti.review/internal/monitoring"
)

var logf = monitoring.Componentf("HTTP")

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes v with 200 OK.
func WriteJSONOK(w http.ResponseWriter, v interface{}) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteJSONError writes {"error": msg} with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// RequireMethod writes 405 and returns false unless r uses method.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// BadRequest writes 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// ServiceUnavailable writes 503 with msg.
func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusServiceUnavailable, msg)
}

// InternalServerError writes 500 with msg.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}
