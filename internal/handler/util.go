package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/powerlunch/internal/middleware"
	"github.com/capitalize-ai/powerlunch/internal/model"
)

// requestErrorMessages holds the client-facing wording for validation
// sentinels that the API contract spells out.
var requestErrorMessages = []struct {
	err     error
	message string
}{
	{middleware.ErrMissingConferenceID, "Missing or invalid conferenceId"},
	{middleware.ErrMissingLunchDate, "Missing or invalid lunchDate"},
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorEvent{Error: message})
}

// writeValidationError writes a 400 for a failed request validation.
func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, validationMessage(err))
}

func validationMessage(err error) string {
	for _, m := range requestErrorMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return err.Error()
}
