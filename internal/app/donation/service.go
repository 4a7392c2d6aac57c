package donation

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"donorlink/internal/app/user"
	"donorlink/internal/pkg/randx"
)

// Service applies the donation lifecycle rules on top of the repositories.
type Service struct {
	repo   Repository
	users  user.Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a Service.
func NewService(repo Repository, users user.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger.With().Str("component", "donation").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create lists a new donation for donorID.
func (s *Service) Create(ctx context.Context, donorID string, in Input) (*Donation, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	now := s.now()
	d := &Donation{
		ID:          randx.ID(),
		DonorID:     donorID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		ItemCount:   in.ItemCount,
		Attributes:  in.Attributes,
		Photos:      in.Photos,
		Status:      StatusListed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}
	return d, nil
}

// Get returns a donation visible to callerID: its donor or its claiming driver.
func (s *Service) Get(ctx context.Context, callerID, id string) (*Donation, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DonorID != callerID && !(d.Pickup != nil && d.Pickup.DriverID != nil && *d.Pickup.DriverID == callerID) {
		return nil, ErrNotFound
	}
	return d, nil
}

// ListMine returns the donor's donations, newest first.
func (s *Service) ListMine(ctx context.Context, donorID string) ([]*Donation, error) {
	return s.repo.ListByDonor(ctx, donorID)
}

// Update replaces the editable fields of a listed or scheduled donation.
func (s *Service) Update(ctx context.Context, donorID, id string, in Input) (*Donation, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	d, err := s.owned(ctx, donorID, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return nil, ErrLocked
	}

	from := d.Status
	d.Title = in.Title
	d.Description = in.Description
	d.Category = in.Category
	d.ItemCount = in.ItemCount
	d.Attributes = in.Attributes
	d.Photos = in.Photos
	d.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, d, from); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes a donation that no driver has claimed.
func (s *Service) Delete(ctx context.Context, donorID, id string) error {
	d, err := s.owned(ctx, donorID, id)
	if err != nil {
		return err
	}
	if !d.Editable() {
		return ErrLocked
	}
	return s.repo.Delete(ctx, id, d.Status)
}

// SchedulePickup sets or moves the pickup window of an unclaimed donation.
func (s *Service) SchedulePickup(ctx context.Context, donorID, id string, req PickupRequest) (*Donation, error) {
	now := s.now()
	if err := req.Validate(now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	d, err := s.owned(ctx, donorID, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return nil, ErrLocked
	}

	code := ""
	if d.Pickup != nil {
		code = d.Pickup.Code
	}
	if code == "" {
		if code, err = randx.PickupCode(); err != nil {
			return nil, err
		}
	}

	from := d.Status
	d.Status = StatusScheduled
	d.Pickup = &Pickup{
		Address:     req.Address,
		WindowStart: req.WindowStart.UTC(),
		WindowEnd:   req.WindowEnd.UTC(),
		Code:        code,
	}
	d.UpdatedAt = now

	if err := s.repo.Update(ctx, d, from); err != nil {
		return nil, err
	}
	return d, nil
}

// Available lists pickups a driver may claim.
func (s *Service) Available(ctx context.Context, driverID string, limit int) ([]*Donation, error) {
	return s.repo.ListAvailable(ctx, driverID, limit)
}

// Claim assigns the pickup to driverID. Concurrent claims resolve to one winner; the rest get ErrConflict.
func (s *Service) Claim(ctx context.Context, driverID, id string) (*Donation, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DonorID == driverID {
		return nil, ErrOwnDonation
	}
	if d.Status != StatusScheduled || d.Pickup == nil || d.Pickup.DriverID != nil {
		return nil, ErrConflict
	}

	now := s.now()
	driver := driverID
	d.Status = StatusClaimed
	d.Pickup.DriverID = &driver
	d.Pickup.ClaimedAt = &now
	d.UpdatedAt = now

	if err := s.repo.Update(ctx, d, StatusScheduled); err != nil {
		return nil, err
	}
	s.logger.Info().Str("donation_id", id).Str("driver_id", driverID).Msg("Pickup claimed")
	return d, nil
}

// Complete closes a claimed pickup and credits the donor with points.
// code is the confirmation code the donor hands to the driver at the door.
func (s *Service) Complete(ctx context.Context, driverID, id, code string) (*Donation, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusClaimed || d.Pickup == nil || d.Pickup.DriverID == nil {
		return nil, ErrConflict
	}
	if *d.Pickup.DriverID != driverID {
		return nil, ErrNotDriver
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(d.Pickup.Code)) != 1 {
		return nil, ErrWrongCode
	}

	now := s.now()
	d.Status = StatusCompleted
	d.Pickup.CompletedAt = &now
	d.UpdatedAt = now

	if err := s.repo.Update(ctx, d, StatusClaimed); err != nil {
		return nil, err
	}

	if err := s.users.AddPoints(ctx, d.DonorID, d.Points()); err != nil {
		// The pickup is done either way; points can be reconciled from completed donations.
		s.logger.Error().Err(err).Str("donation_id", id).Str("donor_id", d.DonorID).Msg("Failed to award points")
	}
	return d, nil
}

// owned loads a donation and checks that donorID owns it.
func (s *Service) owned(ctx context.Context, donorID, id string) (*Donation, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DonorID != donorID {
		return nil, ErrNotFound
	}
	return d, nil
}

// IsNotFound reports whether err means the donation is missing or hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
