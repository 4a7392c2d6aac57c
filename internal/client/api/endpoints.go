package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"donorlink/internal/client/account"
	"donorlink/internal/client/clienterr"
)

// Signup registers a new account and returns its session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (AuthResponse, error) {
	const op = "Signup"
	if err := req.Validate(); err != nil {
		return AuthResponse{}, &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: "Please fill in all fields.", Err: err}
	}
	var out AuthResponse
	if err := c.call(ctx, op, http.MethodPost, "signup", "", req, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	const op = "Login"
	var out AuthResponse
	if err := c.call(ctx, op, http.MethodPost, "login", "", loginRequest{Username: username, Password: password}, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// RequestPasswordReset returns the security question of the account named by identifier.
func (c *Client) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	const op = "RequestPasswordReset"
	var out securityQuestionResponse
	if err := c.call(ctx, op, http.MethodPost, c.routes.request, "", recoveryRequest{Email: identifier}, &out); err != nil {
		return "", err
	}
	return out.SecurityQuestion, nil
}

// VerifySecurityAnswer returns a reset ticket when answer is right.
func (c *Client) VerifySecurityAnswer(ctx context.Context, identifier, answer string) (string, error) {
	const op = "VerifySecurityAnswer"
	var out resetTicketResponse
	if err := c.call(ctx, op, http.MethodPost, c.routes.verify, "", recoveryRequest{Email: identifier, Answer: answer}, &out); err != nil {
		return "", err
	}
	return out.ResetToken, nil
}

// ResetPassword sets a new password using a reset ticket.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error) {
	const op = "ResetPassword"
	var out messageResponse
	req := resetPasswordRequest{ResetToken: resetToken, NewPassword: newPassword}
	if err := c.call(ctx, op, http.MethodPost, "reset-password", "", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// UpdateProfileImage sets (or clears, with nil) the profile image and returns the server's user.
func (c *Client) UpdateProfileImage(ctx context.Context, token, userID string, image *string) (*account.User, error) {
	const op = "UpdateProfileImage"
	if err := requireToken(op, token); err != nil {
		return nil, err
	}
	var out userResponse
	req := updateProfileImageRequest{UserID: userID, ProfileImage: image}
	if err := c.call(ctx, op, http.MethodPut, "update-profile-image", token, req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Profile fetches the signed-in user.
func (c *Client) Profile(ctx context.Context, token string) (*account.User, error) {
	const op = "Profile"
	if err := requireToken(op, token); err != nil {
		return nil, err
	}
	var out userResponse
	if err := c.call(ctx, op, http.MethodGet, "profile", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// CheckUser reports whether a username is registered. Diagnostic only.
func (c *Client) CheckUser(ctx context.Context, username string) (bool, error) {
	const op = "CheckUser"
	username = strings.TrimSpace(username)
	if username == "" {
		return false, clienterr.New(op, clienterr.KindValidation, "Username is required.")
	}
	var out CheckUserResponse
	if err := c.call(ctx, op, http.MethodGet, "check-user/"+url.PathEscape(username), "", nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// ListDonations returns the caller's donations.
func (c *Client) ListDonations(ctx context.Context, token string) ([]Donation, error) {
	const op = "ListDonations"
	if err := requireToken(op, token); err != nil {
		return nil, err
	}
	var out donationListResponse
	if err := c.call(ctx, op, http.MethodGet, "donations", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Donations, nil
}

// CreateDonation lists a new donation.
func (c *Client) CreateDonation(ctx context.Context, token string, in DonationInput) (*Donation, error) {
	const op = "CreateDonation"
	if err := requireToken(op, token); err != nil {
		return nil, err
	}
	var out donationResponse
	if err := c.call(ctx, op, http.MethodPost, "donations", token, in, &out); err != nil {
		return nil, err
	}
	return out.Donation, nil
}

// SchedulePickup sets the pickup window of one of the caller's donations.
func (c *Client) SchedulePickup(ctx context.Context, token, donationID string, req PickupRequest) (*Donation, error) {
	const op = "SchedulePickup"
	if err := requireToken(op, token); err != nil {
		return nil, err
	}
	var out donationResponse
	path := "donations/" + url.PathEscape(donationID) + "/pickup"
	if err := c.call(ctx, op, http.MethodPost, path, token, req, &out); err != nil {
		return nil, err
	}
	return out.Donation, nil
}

// Leaderboard returns the top donors. limit <= 0 uses the server default.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	const op = "Leaderboard"
	path := "leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out leaderboardResponse
	if err := c.call(ctx, op, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Leaders, nil
}
