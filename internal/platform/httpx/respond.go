package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MessageBody is the envelope for errors and confirmations.
type MessageBody struct {
	Mensaje string `json:"mensaje"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends {"mensaje": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Mensaje: msg})
}

// DecodeJSON decodes the JSON request body into target. Type mismatches and
// syntax errors come back as validation errors.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return Validation(err.Error())
	}
	return nil
}
