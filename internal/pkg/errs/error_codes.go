/*
Package errs provides the server's error type and application-level error codes.

Codes are stable across releases and are returned to clients next to the
human-readable message, so clients can branch on them without parsing text.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrMissingFields indicates that one or more required fields were empty.
	ErrMissingFields = 1008

	// ErrValidation carries a field-level validation message in its template.
	ErrValidation = 1009
)

// 2xxx: Donation and Pickup Errors
const (
	// ErrDonationNotFound indicates the donation does not exist or is not visible to the caller.
	ErrDonationNotFound = 2101

	// ErrDonationLocked indicates the donation can no longer be edited in its current status.
	ErrDonationLocked = 2102

	// ErrPickupNotAvailable indicates the pickup was already claimed or is not scheduled.
	ErrPickupNotAvailable = 2201

	// ErrPickupNotClaimedByCaller indicates only the claiming driver may complete the pickup.
	ErrPickupNotClaimedByCaller = 2202

	// ErrOwnPickup indicates a donor tried to claim the pickup of their own donation.
	ErrOwnPickup = 2203

	// ErrPickupCodeMismatch indicates the confirmation code given by the driver is wrong.
	ErrPickupCodeMismatch = 2204

	// ErrFileSizeTooLarge indicates the uploaded photo exceeds the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates the uploaded photo has an unsupported type.
	ErrFileTypeInvalid = 2302
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a missing, invalid or expired session token.
	ErrUnauthorized = 3001

	// ErrForbidden indicates the caller is authenticated but may not act on the resource.
	ErrForbidden = 3002

	// ErrInvalidUsername indicates the username does not satisfy the policy.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates the password does not satisfy the policy.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials is returned for both unknown users and wrong passwords.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates no account matches the identifier.
	ErrUserNotFound = 3105

	// ErrIncorrectAnswer indicates the security answer did not match.
	ErrIncorrectAnswer = 3106

	// ErrResetTokenInvalid indicates the reset ticket is invalid, expired, used or not a reset ticket.
	ErrResetTokenInvalid = 3107
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the object storage call failed.
	ErrFileStorageFailed = 5001

	// ErrFileStorageUnavailable indicates object storage is not configured.
	ErrFileStorageUnavailable = 5002
)
