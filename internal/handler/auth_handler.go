/*
Package handler provides the HTTP handlers and routing for the donorlink API.

This file covers account creation, sign-in and the security-question password
recovery flow.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"donorlink/internal/app/user"
	"donorlink/internal/pkg/auth/jwt"
	"donorlink/internal/pkg/errs"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/policy"
	"donorlink/internal/pkg/randx"
	"donorlink/internal/pkg/req"
	"donorlink/internal/pkg/resp"
)

const maxNameLength = 60

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// loginDummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
func loginDummyHash() []byte {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("donorlink-dummy-password!"), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "failed to prepare dummy password hash")
			return
		}
		dummyHash = h
	})
	return dummyHash
}

// SignupInput is the JSON body of POST /signup.
type SignupInput struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Firstname        string `json:"firstname"`
	Lastname         string `json:"lastname"`
	SecurityQuestion string `json:"securityQuestion"`
	SecurityAnswer   string `json:"securityAnswer"`
}

// trim strips surrounding space from the name and question fields.
func (in *SignupInput) trim() {
	in.Username = strings.TrimSpace(in.Username)
	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.SecurityQuestion = strings.TrimSpace(in.SecurityQuestion)
}

// missing lists the JSON names of empty fields.
func (in *SignupInput) missing() []string {
	var fields []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"username", in.Username},
		{"password", in.Password},
		{"firstname", in.Firstname},
		{"lastname", in.Lastname},
		{"securityQuestion", in.SecurityQuestion},
		{"securityAnswer", strings.TrimSpace(in.SecurityAnswer)},
	} {
		if f.value == "" {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// HandleSignup creates an account and signs it in.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		input.trim()

		if missing := input.missing(); len(missing) > 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, strings.Join(missing, ", ")))
			return
		}

		if err := policy.ValidateUsername(input.Username); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername, err.Error()))
			return
		}

		if err := policy.ValidatePassword(input.Password); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword, err.Error()))
			return
		}

		if len([]rune(input.Firstname)) > maxNameLength || len([]rune(input.Lastname)) > maxNameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrValidation, "Names must be at most 60 characters."))
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "signup: password hashing failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		answerHash, err := bcrypt.GenerateFromPassword([]byte(policy.NormalizeAnswer(input.SecurityAnswer)), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "signup: answer hashing failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		now := time.Now().UTC()
		u := &user.User{
			ID:                 randx.ID(),
			Username:           input.Username,
			PasswordHash:       string(passwordHash),
			Firstname:          input.Firstname,
			Lastname:           input.Lastname,
			SecurityQuestion:   input.SecurityQuestion,
			SecurityAnswerHash: string(answerHash),
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if err := deps.Users.Create(r.Context(), u); err != nil {
			if errors.Is(err, user.ErrUsernameTaken) {
				logx.Warn("signup conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		token, err := jwt.SessionToken(u.ID, deps.Config.JWTSecret)
		if err != nil {
			logx.Error(err, "failed to generate token after signup")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondCreated(w, r, map[string]any{
			"message": "User registered successfully.",
			"token":   token,
			"user":    deps.profileOf(u),
		})
	}
}

// LoginInput is the JSON body of POST /login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a session token. Unknown users
// and wrong passwords produce the same response.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		username := strings.TrimSpace(input.Username)
		if username == "" || input.Password == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		u, err := deps.Users.GetByUsername(r.Context(), username)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			logx.Error(err, "login: user lookup failed", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if u == nil {
			_ = bcrypt.CompareHashAndPassword(loginDummyHash(), []byte(input.Password))
			logx.Warn("login: unknown username", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := jwt.SessionToken(u.ID, deps.Config.JWTSecret)
		if err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"token": token,
			"user":  deps.profileOf(u),
		})
	}
}

// RecoveryIdentity names the account in the recovery flow. Older clients send
// the username in the email field.
type RecoveryIdentity struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// identifier returns the username, falling back to the legacy email field.
func (in RecoveryIdentity) identifier() string {
	if s := strings.TrimSpace(in.Username); s != "" {
		return s
	}
	return strings.TrimSpace(in.Email)
}

// lookupRecoveryUser resolves the identifier and writes the error response itself when it fails.
func lookupRecoveryUser(deps *AppDeps, w http.ResponseWriter, r *http.Request, identifier string) *user.User {
	if identifier == "" {
		resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "email"))
		return nil
	}

	u, err := deps.Users.GetByUsername(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return nil
		}
		logx.Error(err, "recovery: user lookup failed")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return nil
	}
	return u
}

// HandleRequestPasswordReset returns the account's security question.
func HandleRequestPasswordReset(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RecoveryIdentity
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u := lookupRecoveryUser(deps, w, r, input.identifier())
		if u == nil {
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"securityQuestion": u.SecurityQuestion,
		})
	}
}

// VerifyAnswerInput is the JSON body of POST /verify-security-answer.
type VerifyAnswerInput struct {
	RecoveryIdentity
	Answer string `json:"answer"`
}

// HandleVerifySecurityAnswer checks the answer case-insensitively and issues a reset ticket.
func HandleVerifySecurityAnswer(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input VerifyAnswerInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		answer := policy.NormalizeAnswer(input.Answer)
		if answer == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "answer"))
			return
		}

		u := lookupRecoveryUser(deps, w, r, input.identifier())
		if u == nil {
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.SecurityAnswerHash), []byte(answer)); err != nil {
			logx.Warn("recovery: incorrect security answer", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrIncorrectAnswer))
			return
		}

		ticket, err := jwt.ResetTicket(u.ID, u.PasswordVersion, deps.Config.JWTSecret, deps.Config.ResetTicketTTL)
		if err != nil {
			logx.Error(err, "recovery: reset ticket generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"message":    "Security answer verified.",
			"resetToken": ticket,
		})
	}
}

// ResetPasswordInput is the JSON body of POST /reset-password.
type ResetPasswordInput struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

// HandleResetPassword sets a new password. Only a reset ticket issued for the
// account's current password version is accepted, so each ticket works once.
func HandleResetPassword(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ResetPasswordInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ResetToken == "" || input.NewPassword == "" {
			var missing []string
			if input.ResetToken == "" {
				missing = append(missing, "resetToken")
			}
			if input.NewPassword == "" {
				missing = append(missing, "newPassword")
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, strings.Join(missing, ", ")))
			return
		}

		ticket, err := jwt.ParsePurpose(input.ResetToken, deps.Config.JWTSecret, jwt.PurposeReset)
		if err != nil {
			logx.Warn("reset: rejected ticket", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrResetTokenInvalid))
			return
		}

		if err := policy.ValidatePassword(input.NewPassword); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword, err.Error()))
			return
		}

		u, err := deps.Users.GetByID(r.Context(), ticket.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrResetTokenInvalid))
				return
			}
			logx.Error(err, "reset: user lookup failed", "user_id", ticket.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if u.PasswordVersion != ticket.PasswordVersion {
			logx.Warn("reset: ticket already used", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrResetTokenInvalid))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "reset: password hashing failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Users.UpdatePassword(r.Context(), u.ID, string(hash), ticket.PasswordVersion); err != nil {
			if errors.Is(err, user.ErrStalePassword) || errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrResetTokenInvalid))
				return
			}
			logx.Error(err, "reset: password update failed", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("password reset completed", "user_id", u.ID)
		resp.RespondOK(w, r, map[string]any{
			"message": "Password has been reset.",
		})
	}
}

// HandleCheckUser reports whether a username exists. Diagnostic only.
func HandleCheckUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(chi.URLParam(r, "username"))
		if username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "username"))
			return
		}

		_, err := deps.Users.GetByUsername(r.Context(), username)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			logx.Error(err, "check_user: lookup failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"exists":   err == nil,
			"username": username,
		})
	}
}

// deprecatedRoute serves a legacy path with the canonical handler and logs each hit.
func deprecatedRoute(canonical string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logx.FromRequest(r).Warn().
			Str("path", r.URL.Path).
			Str("canonical", canonical).
			Msg("Deprecated route used")
		w.Header().Set("Deprecation", "true")
		w.Header().Set("Link", "<"+canonical+">; rel=\"successor-version\"")
		next(w, r)
	}
}
