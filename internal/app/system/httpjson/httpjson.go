// Package httpjson holds the small request/response helpers shared by
// the JSON feature handlers.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/system/limits"
)

// Respond writes v as JSON with the given status code.
func Respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// Error writes a JSON error body with the given status code.
func Error(w http.ResponseWriter, status int, msg string) {
	Respond(w, status, errorBody{Error: msg})
}

// Decode reads the request body into v, rejecting unknown fields and
// bodies over limits.MaxJSONBodySize.
func Decode(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, limits.MaxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Trailing garbage after the JSON value is a malformed request.
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
