package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// SessionExpiration is the lifetime of a session token.
	SessionExpiration = 7 * 24 * time.Hour

	// ResetTicketExpiration is the lifetime of a password reset ticket.
	ResetTicketExpiration = 15 * time.Minute

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "donorlink-api"
)

var (
	// ErrWrongPurpose is returned when a token is valid but scoped to another purpose.
	ErrWrongPurpose = errors.New("token purpose mismatch")

	// ErrInvalidToken is returned for malformed, tampered or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// GenerateToken signs payload with HS256 and stamps exp/iat/iss/sub.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
		Subject:   payload.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates tokenString, whatever its purpose.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid || claims.ID == "" || !claims.VerifyIssuer(TokenIssuer, true) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ParsePurpose parses tokenString and requires the given purpose claim.
func ParsePurpose(tokenString, secretKey, purpose string) (*Payload, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// SessionToken issues a session token for userID.
func SessionToken(userID, secretKey string) (string, error) {
	return GenerateToken(&Payload{ID: userID, Purpose: PurposeSession}, secretKey, SessionExpiration)
}

// ResetTicket issues a reset ticket for userID bound to passwordVersion.
func ResetTicket(userID string, passwordVersion int, secretKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ResetTicketExpiration
	}
	return GenerateToken(&Payload{ID: userID, Purpose: PurposeReset, PasswordVersion: passwordVersion}, secretKey, ttl)
}
