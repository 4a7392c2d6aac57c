package api

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"donorlink/internal/client/account"
)

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname"`
	SecurityQuestion string `json:"securityQuestion"`
	SecurityAnswer   string `json:"securityAnswer"`
}

// Validate checks that every field is present. Format rules live in the policy package.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Firstname, validation.Required),
		validation.Field(&r.Lastname, validation.Required),
		validation.Field(&r.SecurityQuestion, validation.Required),
		validation.Field(&r.SecurityAnswer, validation.Required),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by /signup and /login.
type AuthResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    *account.User `json:"user"`
}

// Validate requires a token and a user.
func (r *AuthResponse) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.User, validation.Required),
	)
}

type recoveryRequest struct {
	Email  string `json:"email"`
	Answer string `json:"answer,omitempty"`
}

type securityQuestionResponse struct {
	SecurityQuestion string `json:"securityQuestion"`
}

func (r *securityQuestionResponse) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SecurityQuestion, validation.Required),
	)
}

type resetTicketResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

func (r *resetTicketResponse) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ResetToken, validation.Required),
	)
}

type resetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (r *messageResponse) Validate() error { return nil }

type updateProfileImageRequest struct {
	UserID       string  `json:"userId"`
	ProfileImage *string `json:"profileImage"`
}

type userResponse struct {
	Message string        `json:"message"`
	User    *account.User `json:"user"`
}

func (r *userResponse) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.User, validation.Required),
	)
}

// CheckUserResponse is returned by /check-user/{username}.
type CheckUserResponse struct {
	Exists   bool   `json:"exists"`
	Username string `json:"username"`
}

// Validate accepts any body.
func (r *CheckUserResponse) Validate() error { return nil }

// Pickup is the collection slot of a donation. Code is only filled in for the donor.
type Pickup struct {
	Address     string    `json:"address"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	Code        string    `json:"code"`
	DriverID    *string   `json:"driverId"`
}

// Donation is a donation listing as the client sees it.
type Donation struct {
	ID          string            `json:"id"`
	DonorID     string            `json:"donorId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	ItemCount   int               `json:"itemCount"`
	Attributes  map[string]string `json:"attributes"`
	Photos      []string          `json:"photos"`
	Status      string            `json:"status"`
	Pickup      *Pickup           `json:"pickup"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Validate checks the fields the client relies on.
func (d Donation) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.DonorID, validation.Required),
		validation.Field(&d.Status, validation.Required, validation.In("listed", "scheduled", "claimed", "completed")),
	)
}

// DonationInput is the editable part of a donation.
type DonationInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	ItemCount   int               `json:"itemCount"`
	Attributes  map[string]string `json:"attributes"`
	Photos      []string          `json:"photos"`
}

// PickupRequest schedules a pickup.
type PickupRequest struct {
	Address     string    `json:"address"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

type donationResponse struct {
	Donation *Donation `json:"donation"`
}

func (r *donationResponse) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Donation, validation.Required),
	)
}

type donationListResponse struct {
	Donations []Donation `json:"donations"`
}

func (r *donationListResponse) Validate() error {
	for _, d := range r.Donations {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LeaderboardEntry is one ranked donor.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	Points       int     `json:"points"`
	ProfileImage *string `json:"profileImage"`
}

type leaderboardResponse struct {
	Leaders []LeaderboardEntry `json:"leaders"`
}

func (r *leaderboardResponse) Validate() error {
	for _, e := range r.Leaders {
		if e.Rank < 1 || e.UserID == "" {
			return errors.New("leaderboard entry is incomplete")
		}
	}
	return nil
}
