/*
Package credstore persists the client session and a few auxiliary keys on the
device.

The token and the user snapshot are written, read and cleared together in
one transaction, so a reader never sees one without the other. A half pair
found on disk is treated as no session and removed.
*/
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"donorlink/internal/client/account"
)

// Keys used on the device.
const (
	KeyToken                    = "token"
	KeyUser                     = "user"
	KeyPendingAuthAction        = "pendingAuthAction"
	KeyResetToken               = "resetToken"
	KeyDonationCartNeedsRefresh = "donationCartNeedsRefresh"
)

// Credentials is the persisted session.
type Credentials struct {
	Token string
	User  *account.User
}

// Valid reports whether c holds a usable token and user pair.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Token) != "" && c.User != nil && c.User.Validate() == nil
}

// ErrInvalidCredentials is returned by Save for an incomplete pair.
var ErrInvalidCredentials = errors.New("credentials need both token and user")

// Store is the durable key/value store behind the session.
type Store interface {
	// Save writes token and user atomically.
	Save(ctx context.Context, c Credentials) error
	// Load returns the stored pair. ok is false when there is no complete pair.
	Load(ctx context.Context) (c Credentials, ok bool, err error)
	// Clear removes token and user atomically.
	Clear(ctx context.Context) error

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Take reads and deletes key atomically.
	Take(ctx context.Context, key string) (string, bool, error)
}

func encodeUser(u *account.User) (string, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(raw), nil
}

// decodePair turns the raw values into Credentials, reporting false for anything incomplete.
func decodePair(token, rawUser string) (Credentials, bool) {
	if token == "" || rawUser == "" {
		return Credentials{}, false
	}
	var u account.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return Credentials{}, false
	}
	c := Credentials{Token: token, User: &u}
	if !c.Valid() {
		return Credentials{}, false
	}
	return c, true
}
