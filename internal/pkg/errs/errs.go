/*
Package errs provides the server's error type and application-level error codes.

CustomError implements error and carries a business code, a user-facing
message and the HTTP status used when it is written to a response.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"donorlink/internal/pkg/logx"
)

// CustomError is the error structure returned by handlers.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-facing description.
	Message string

	// Status is the HTTP status code written with this error.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code.
// details fill printf placeholders in the message template; for ErrUnknown the
// first detail may be the underlying error, which is logged and never exposed.
// Unknown codes degrade to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
		return &customErr
	}

	if strings.Contains(customErr.Message, "%") {
		if len(details) == 0 {
			customErr.Message = errorMap[ErrInvalidParams].Message
			return &customErr
		}
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	} else if len(details) > 0 {
		logx.Warn(
			"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			"code", code,
		)
	}

	return &customErr
}
