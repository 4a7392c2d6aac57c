/*
Package account holds the user snapshot the client keeps for the signed-in
account. The snapshot is always replaced wholesale with what the server
returns; the client never patches individual fields.
*/
package account

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// User is the server's canonical profile of the signed-in account.
type User struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Firstname    string  `json:"firstname"`
	Lastname     string  `json:"lastname"`
	Points       int     `json:"points"`
	ProfileImage *string `json:"profileImage"`
}

// Validate checks that the snapshot has the fields every screen relies on.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Username, validation.Required),
		validation.Field(&u.Points, validation.Min(0)),
	)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		cp.ProfileImage = &img
	}
	return &cp
}

// DisplayName returns "Firstname Lastname", falling back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.Firstname != "" && u.Lastname != "":
		return u.Firstname + " " + u.Lastname
	case u.Firstname != "":
		return u.Firstname
	}
	return u.Username
}
