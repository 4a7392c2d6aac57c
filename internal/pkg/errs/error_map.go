/*
Package errs provides the server's error type and application-level error codes.

This file maps every code to its client message and HTTP status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status means http.StatusBadRequest.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrMissingFields:         {Code: ErrMissingFields, Message: "Missing required fields: %s."},
	ErrValidation:            {Code: ErrValidation, Message: "%s"},

	// 2xxx: Donation and Pickup Errors
	ErrDonationNotFound:         {Code: ErrDonationNotFound, Message: "Donation not found.", Status: http.StatusNotFound},
	ErrDonationLocked:           {Code: ErrDonationLocked, Message: "This donation can no longer be changed.", Status: http.StatusConflict},
	ErrPickupNotAvailable:       {Code: ErrPickupNotAvailable, Message: "This pickup is no longer available.", Status: http.StatusConflict},
	ErrPickupNotClaimedByCaller: {Code: ErrPickupNotClaimedByCaller, Message: "Only the assigned driver can complete this pickup.", Status: http.StatusForbidden},
	ErrOwnPickup:                {Code: ErrOwnPickup, Message: "You cannot claim your own donation.", Status: http.StatusForbidden},
	ErrPickupCodeMismatch:       {Code: ErrPickupCodeMismatch, Message: "Pickup code does not match."},
	ErrFileSizeTooLarge:         {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:          {Code: ErrFileTypeInvalid, Message: "Only JPEG, PNG and WebP photos are supported."},

	// 3xxx: User, Session, and Security Errors
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:          {Code: ErrForbidden, Message: "You are not allowed to do that.", Status: http.StatusForbidden},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "%s"},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "%s"},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials.", Status: http.StatusUnauthorized},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrIncorrectAnswer:    {Code: ErrIncorrectAnswer, Message: "Incorrect answer to the security question.", Status: http.StatusUnauthorized},
	ErrResetTokenInvalid:  {Code: ErrResetTokenInvalid, Message: "Reset link is invalid or has expired.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:                {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:      {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrFileStorageUnavailable: {Code: ErrFileStorageUnavailable, Message: "File uploads are not available.", Status: http.StatusServiceUnavailable},
}
