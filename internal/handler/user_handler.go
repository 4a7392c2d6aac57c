package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"donorlink/internal/app/storage"
	"donorlink/internal/app/user"
	"donorlink/internal/pkg/auth/jwt"
	"donorlink/internal/pkg/errs"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/req"
	"donorlink/internal/pkg/resp"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 50
	maxImageRefLength      = 2048
)

// isUploadKey reports whether ref names an object in our bucket rather than an external URI.
func isUploadKey(ref string) bool {
	return !strings.Contains(ref, "://")
}

// HandleGetProfile returns the signed-in user's profile.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		u, err := deps.Users.GetByID(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// The account behind a still-valid token is gone.
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			logx.Error(err, "get_profile: lookup failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"user": deps.profileOf(u),
		})
	}
}

// UpdateProfileImageInput is the JSON body of PUT /update-profile-image.
type UpdateProfileImageInput struct {
	UserID       string  `json:"userId"`
	ProfileImage *string `json:"profileImage"`
}

// HandleUpdateProfileImage sets or clears the caller's profile image and
// returns the canonical user.
func HandleUpdateProfileImage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input UpdateProfileImageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if strings.TrimSpace(input.UserID) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "userId"))
			return
		}

		if input.UserID != identity.ID {
			logx.Warn("update_profile_image: user id mismatch", "user_id", identity.ID, "target", input.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
			return
		}

		var image *string
		if input.ProfileImage != nil {
			ref := deps.assetKey(strings.TrimSpace(*input.ProfileImage))
			if len(ref) > maxImageRefLength {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			if ref != "" {
				if isUploadKey(ref) && !storage.OwnsKey(identity.ID, ref) {
					resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
					return
				}
				image = &ref
			}
		}

		previous, err := deps.Users.GetByID(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "update_profile_image: lookup failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		updated, err := deps.Users.UpdateProfileImage(r.Context(), identity.ID, image)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "update_profile_image: update failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if old := previous.ProfileImage; old != nil && deps.Storage != nil && isUploadKey(*old) &&
			(image == nil || *image != *old) {
			go func(key string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := deps.Storage.Delete(ctx, key); err != nil {
					logx.Error(err, "update_profile_image: failed to delete previous image", "key", key)
				}
			}(*old)
		}

		resp.RespondOK(w, r, map[string]any{
			"message": "Profile image updated.",
			"user":    deps.profileOf(updated),
		})
	}
}

// HandleLeaderboard lists the top donors by points.
func HandleLeaderboard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, customErr := queryLimit(r, defaultLeaderboardSize, maxLeaderboardSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		users, err := deps.Users.TopByPoints(r.Context(), limit)
		if err != nil {
			logx.Error(err, "leaderboard: query failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		entries := make([]user.LeaderboardEntry, 0, len(users))
		for i, u := range users {
			p := deps.profileOf(u)
			entries = append(entries, user.LeaderboardEntry{
				Rank:         i + 1,
				UserID:       u.ID,
				Username:     u.Username,
				Points:       u.Points,
				ProfileImage: p.ProfileImage,
			})
		}

		resp.RespondOK(w, r, map[string]any{
			"leaders": entries,
		})
	}
}

// queryLimit reads the "limit" query parameter, defaulting to def and capping at max.
func queryLimit(r *http.Request, def, max int) (int, *errs.CustomError) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	if n > max {
		n = max
	}
	return n, nil
}
