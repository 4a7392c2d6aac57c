/*
Package donation models clothing and toy donation listings and their pickup
lifecycle: listed, scheduled, claimed by a driver, completed.

Attributes are stored as an opaque document. They typically hold what the
mobile app's photo classifier suggested (size, colour, condition), but the
server never interprets them.
*/
package donation

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Status is the lifecycle position of a donation.
type Status string

const (
	StatusListed    Status = "listed"
	StatusScheduled Status = "scheduled"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
)

// Category is the kind of goods donated.
type Category string

const (
	CategoryClothing Category = "clothing"
	CategoryToys     Category = "toys"
)

// PointsPerItem is what a donor earns per item once a pickup completes.
const PointsPerItem = 10

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000
	maxPhotos            = 6
	maxItemCount         = 200
	maxAttributes        = 32
	minPickupWindow      = 30 * time.Minute
	maxPickupWindow      = 12 * time.Hour
)

var (
	// ErrNotFound is returned when the donation does not exist.
	ErrNotFound = errors.New("donation not found")

	// ErrConflict is returned when the donation changed status underneath the caller.
	ErrConflict = errors.New("donation status changed")

	// ErrLocked is returned when an operation is not allowed in the current status.
	ErrLocked = errors.New("donation locked")

	// ErrOwnDonation is returned when a donor tries to claim their own pickup.
	ErrOwnDonation = errors.New("cannot claim own donation")

	// ErrNotDriver is returned when someone other than the claiming driver completes a pickup.
	ErrNotDriver = errors.New("pickup claimed by another driver")

	// ErrWrongCode is returned when the driver's confirmation code does not match.
	ErrWrongCode = errors.New("pickup code mismatch")

	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid donation")
)

// Pickup is the scheduled collection of a donation.
type Pickup struct {
	Address     string     `json:"address"`
	WindowStart time.Time  `json:"windowStart"`
	WindowEnd   time.Time  `json:"windowEnd"`
	Code        string     `json:"code"`
	DriverID    *string    `json:"driverId"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Donation is one listing.
type Donation struct {
	ID          string            `json:"id"`
	DonorID     string            `json:"donorId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    Category          `json:"category"`
	ItemCount   int               `json:"itemCount"`
	Attributes  map[string]string `json:"attributes"`
	Photos      []string          `json:"photos"`
	Status      Status            `json:"status"`
	Pickup      *Pickup           `json:"pickup"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Input is the editable part of a donation.
type Input struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    Category          `json:"category"`
	ItemCount   int               `json:"itemCount"`
	Attributes  map[string]string `json:"attributes"`
	Photos      []string          `json:"photos"`
}

// Validate checks an Input.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&in.Description, validation.RuneLength(0, maxDescriptionLength)),
		validation.Field(&in.Category, validation.Required, validation.In(CategoryClothing, CategoryToys)),
		validation.Field(&in.ItemCount, validation.Required, validation.Min(1), validation.Max(maxItemCount)),
		validation.Field(&in.Attributes, validation.Length(0, maxAttributes)),
		validation.Field(&in.Photos, validation.Length(0, maxPhotos)),
	)
}

// Normalize trims text fields and drops empty photo keys.
func (in Input) Normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
	photos := make([]string, 0, len(in.Photos))
	for _, p := range in.Photos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}
	in.Photos = photos
	if in.Attributes == nil {
		in.Attributes = map[string]string{}
	}
	return in
}

// PickupRequest schedules a pickup.
type PickupRequest struct {
	Address     string    `json:"address"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

// Validate checks the window against now.
func (p PickupRequest) Validate(now time.Time) error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Address, validation.Required, validation.RuneLength(5, 300)),
		validation.Field(&p.WindowStart, validation.Required),
		validation.Field(&p.WindowEnd, validation.Required),
	); err != nil {
		return err
	}
	if !p.WindowStart.After(now) {
		return errors.New("windowStart: must be in the future")
	}
	window := p.WindowEnd.Sub(p.WindowStart)
	if window < minPickupWindow || window > maxPickupWindow {
		return errors.New("windowEnd: pickup window must be between 30 minutes and 12 hours")
	}
	return nil
}

// Editable reports whether the donor may still change or delete the listing.
func (d *Donation) Editable() bool {
	return d.Status == StatusListed || d.Status == StatusScheduled
}

// ForViewer returns a copy of d safe to show to viewerID. Only the donor sees the pickup code.
func (d *Donation) ForViewer(viewerID string) *Donation {
	cp := clone(d)
	if cp.Pickup != nil && cp.DonorID != viewerID {
		cp.Pickup.Code = ""
	}
	return cp
}

// Points is what the donor earns when this donation's pickup completes.
func (d *Donation) Points() int {
	return d.ItemCount * PointsPerItem
}

// Repository persists donations.
type Repository interface {
	Create(ctx context.Context, d *Donation) error
	Get(ctx context.Context, id string) (*Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]*Donation, error)

	// ListAvailable returns scheduled, unclaimed donations not owned by excludeDonorID, oldest window first.
	ListAvailable(ctx context.Context, excludeDonorID string, limit int) ([]*Donation, error)

	// Update replaces d only if the stored status equals from. Returns ErrConflict otherwise.
	Update(ctx context.Context, d *Donation, from Status) error

	// Delete removes the donation only if the stored status equals from.
	Delete(ctx context.Context, id string, from Status) error
}
