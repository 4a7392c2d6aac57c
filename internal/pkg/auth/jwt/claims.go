package jwt

import "github.com/golang-jwt/jwt"

const (
	// PurposeSession marks a bearer token that authenticates API requests.
	PurposeSession = "session"

	// PurposeReset marks a reset ticket that may only be spent on /reset-password.
	PurposeReset = "reset"
)

// Payload is the claim set of every token donorlink issues.
type Payload struct {
	// StandardClaims carries exp, iat, iss and sub.
	jwt.StandardClaims

	// ID is the user the token belongs to.
	ID string `json:"id"`

	// Purpose scopes the token: PurposeSession or PurposeReset.
	Purpose string `json:"purpose"`

	// PasswordVersion binds a reset ticket to the password it replaces.
	// Once the password changes the ticket no longer matches.
	PasswordVersion int `json:"pwv,omitempty"`
}
