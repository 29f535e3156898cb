package cnx

import (
	"encoding/json"
	"net/http"

	"github.com/gertd/go-pluralize"
)

var pluralizer = pluralize.NewClient()

// SuccessResponse is the envelope for successful responses.
type SuccessResponse struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// ErrorPayload is the inner structure of error envelopes.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for error responses.
type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

// Respond sends a success envelope with an explicit status code.
func Respond(w http.ResponseWriter, code int, data any) {
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

// RespondSuccess sends a 200 success envelope.
func RespondSuccess(w http.ResponseWriter, data any) {
	Respond(w, http.StatusOK, data)
}

// RespondError sends an error envelope mirroring the success shape.
func RespondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorPayload{
			Code:    http.StatusText(code),
			Message: message,
		},
	})
}

// Pluralize converts a singular resource name into its plural form.
func Pluralize(singular string) string {
	return pluralizer.Plural(singular)
}

// Singularize converts a plural resource name into its singular form.
func Singularize(plural string) string {
	return pluralizer.Singular(plural)
}
