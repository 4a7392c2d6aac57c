/*
Package resp writes JSON responses in the shapes the mobile client expects.

Success bodies are endpoint-specific flat objects; error bodies always carry
a business code and a message that the client can show verbatim.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"donorlink/internal/pkg/errs"
	"donorlink/internal/pkg/logx"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Code is the business error code (see the errs package).
	Code int `json:"code"`

	// Message is the user-facing error message.
	Message string `json:"message"`
}

// RespondJSON sets the JSON headers and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.FromRequest(r).Error().
			Err(err).
			Int("http_status", httpStatus).
			Msg("Error encoding JSON response")

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondOK writes payload with HTTP 200.
func RespondOK(w http.ResponseWriter, r *http.Request, payload any) {
	RespondJSON(w, r, http.StatusOK, payload)
}

// RespondCreated writes payload with HTTP 201.
func RespondCreated(w http.ResponseWriter, r *http.Request, payload any) {
	RespondJSON(w, r, http.StatusCreated, payload)
}

// RespondError writes customErr with its own HTTP status. A nil error becomes ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
