package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"donorlink/internal/app/donation"
	"donorlink/internal/app/storage"
	"donorlink/internal/pkg/auth/jwt"
	"donorlink/internal/pkg/errs"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/req"
	"donorlink/internal/pkg/resp"
)

const (
	defaultAvailableSize = 20
	maxAvailableSize     = 100
)

// donationError maps a donation service error to its API error.
func donationError(r *http.Request, op string, err error) *errs.CustomError {
	switch {
	case errors.Is(err, donation.ErrInvalid):
		msg := strings.TrimPrefix(err.Error(), donation.ErrInvalid.Error()+": ")
		return errs.NewError(errs.ErrValidation, msg)
	case errors.Is(err, donation.ErrNotFound):
		return errs.NewError(errs.ErrDonationNotFound)
	case errors.Is(err, donation.ErrLocked):
		return errs.NewError(errs.ErrDonationLocked)
	case errors.Is(err, donation.ErrConflict):
		return errs.NewError(errs.ErrPickupNotAvailable)
	case errors.Is(err, donation.ErrOwnDonation):
		return errs.NewError(errs.ErrOwnPickup)
	case errors.Is(err, donation.ErrNotDriver):
		return errs.NewError(errs.ErrPickupNotClaimedByCaller)
	case errors.Is(err, donation.ErrWrongCode):
		return errs.NewError(errs.ErrPickupCodeMismatch)
	}

	logx.FromRequest(r).Error().Err(err).Str("op", op).Msg("Donation operation failed")
	return errs.NewError(errs.ErrUnknown)
}

// checkPhotos rejects upload keys that belong to someone else.
func checkPhotos(deps *AppDeps, userID string, in *donation.Input) *errs.CustomError {
	for i, p := range in.Photos {
		key := deps.assetKey(strings.TrimSpace(p))
		if isUploadKey(key) && key != "" && !storage.OwnsKey(userID, key) {
			return errs.NewError(errs.ErrForbidden)
		}
		in.Photos[i] = key
	}
	return nil
}

// donationView prepares d for viewerID: photo keys become URLs and the pickup
// code is hidden from everyone but the donor.
func (d *AppDeps) donationView(dn *donation.Donation, viewerID string) *donation.Donation {
	v := dn.ForViewer(viewerID)
	for i, p := range v.Photos {
		v.Photos[i] = d.AssetURL(p)
	}
	return v
}

// donationViews applies donationView to every donation in list.
func (d *AppDeps) donationViews(list []*donation.Donation, viewerID string) []*donation.Donation {
	out := make([]*donation.Donation, 0, len(list))
	for _, dn := range list {
		out = append(out, d.donationView(dn, viewerID))
	}
	return out
}

// HandleListDonations lists the caller's own donations.
func HandleListDonations(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		list, err := deps.Donations.ListMine(r.Context(), identity.ID)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "list", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"donations": deps.donationViews(list, identity.ID),
		})
	}
}

// HandleCreateDonation lists a new donation.
func HandleCreateDonation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input donation.Input
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if customErr := checkPhotos(deps, identity.ID, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		d, err := deps.Donations.Create(r.Context(), identity.ID, input)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "create", err))
			return
		}

		resp.RespondCreated(w, r, map[string]any{
			"donation": deps.donationView(d, identity.ID),
		})
	}
}

// HandleGetDonation returns one donation to its donor or its driver.
func HandleGetDonation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		d, err := deps.Donations.Get(r.Context(), identity.ID, chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, donationError(r, "get", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"donation": deps.donationView(d, identity.ID),
		})
	}
}

// HandleUpdateDonation replaces the editable fields of a donation.
func HandleUpdateDonation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input donation.Input
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if customErr := checkPhotos(deps, identity.ID, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		d, err := deps.Donations.Update(r.Context(), identity.ID, chi.URLParam(r, "id"), input)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "update", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"donation": deps.donationView(d, identity.ID),
		})
	}
}

// HandleDeleteDonation removes an unclaimed donation.
func HandleDeleteDonation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		if err := deps.Donations.Delete(r.Context(), identity.ID, chi.URLParam(r, "id")); err != nil {
			resp.RespondError(w, r, donationError(r, "delete", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"message": "Donation deleted.",
		})
	}
}

// HandleSchedulePickup sets the pickup address and window of a donation.
func HandleSchedulePickup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input donation.PickupRequest
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		input.Address = strings.TrimSpace(input.Address)

		d, err := deps.Donations.SchedulePickup(r.Context(), identity.ID, chi.URLParam(r, "id"), input)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "schedule", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"message":  "Pickup scheduled.",
			"donation": deps.donationView(d, identity.ID),
		})
	}
}

// HandleAvailablePickups lists pickups the caller may claim as a driver.
func HandleAvailablePickups(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		limit, customErr := queryLimit(r, defaultAvailableSize, maxAvailableSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		list, err := deps.Donations.Available(r.Context(), identity.ID, limit)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "available", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"pickups": deps.donationViews(list, identity.ID),
		})
	}
}

// HandleClaimPickup assigns a pickup to the calling driver.
func HandleClaimPickup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		d, err := deps.Donations.Claim(r.Context(), identity.ID, chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, donationError(r, "claim", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"message":  "Pickup claimed.",
			"donation": deps.donationView(d, identity.ID),
		})
	}
}

// CompletePickupInput is the JSON body of POST /pickups/{id}/complete.
type CompletePickupInput struct {
	Code string `json:"code"`
}

// HandleCompletePickup closes a pickup once the driver presents the donor's code.
func HandleCompletePickup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input CompletePickupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		code := strings.TrimSpace(input.Code)
		if code == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "code"))
			return
		}

		d, err := deps.Donations.Complete(r.Context(), identity.ID, chi.URLParam(r, "id"), code)
		if err != nil {
			resp.RespondError(w, r, donationError(r, "complete", err))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"message":       "Pickup completed.",
			"pointsAwarded": d.Points(),
			"donation":      deps.donationView(d, identity.ID),
		})
	}
}
