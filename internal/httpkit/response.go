// Package httpkit holds the JSON response helpers shared by the HTTP
// handlers and middleware.
package httpkit

import (
	"encoding/json"
	"net/http"

	"clipforge/internal/pkg/errors"
)

type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// maxBodyBytes caps request bodies; job submissions are a few hundred bytes.
const maxBodyBytes = 1 << 20

func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	_ = json.NewEncoder(w).Encode(env)
}

// WriteError maps a coded error onto its status and envelope. Server errors
// carry a generic message; causes stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)
	code := errors.GetCode(err)
	msg := "internal server error"
	if status < 500 {
		var e *errors.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
	}
	WriteErr(w, status, string(code), msg, errors.GetFields(err))
}
