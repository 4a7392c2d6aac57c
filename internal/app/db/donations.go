package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"donorlink/internal/app/donation"
)

const donationColumns = `id::text, donor_id::text, title, description, category, item_count,
	attributes, photos, status, pickup, created_at, updated_at`

// DonationStore implements donation.Repository on PostgreSQL.
type DonationStore struct {
	pool *pgxpool.Pool
}

// NewDonationStore wraps pool.
func NewDonationStore(pool *pgxpool.Pool) *DonationStore {
	return &DonationStore{pool: pool}
}

var _ donation.Repository = (*DonationStore)(nil)

// scanDonation reads one donations row, decoding the JSONB columns.
func scanDonation(row pgx.Row) (*donation.Donation, error) {
	d := &donation.Donation{}
	var category, status string
	err := row.Scan(
		&d.ID, &d.DonorID, &d.Title, &d.Description, &category, &d.ItemCount,
		&d.Attributes, &d.Photos, &status, &d.Pickup, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsInvalidText(err) {
			return nil, donation.ErrNotFound
		}
		return nil, err
	}
	d.Category = donation.Category(category)
	d.Status = donation.Status(status)
	return d, nil
}

// collectDonations scans every row and closes rows.
func collectDonations(rows pgx.Rows) ([]*donation.Donation, error) {
	defer rows.Close()
	out := []*donation.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create inserts d.
func (s *DonationStore) Create(ctx context.Context, d *donation.Donation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO donations (id, donor_id, title, description, category, item_count,
			attributes, photos, status, pickup, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.DonorID, d.Title, d.Description, string(d.Category), d.ItemCount,
		d.Attributes, d.Photos, string(d.Status), d.Pickup, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// Get returns the donation with id.
func (s *DonationStore) Get(ctx context.Context, id string) (*donation.Donation, error) {
	return scanDonation(s.pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id))
}

// ListByDonor returns the donor's donations, newest first.
func (s *DonationStore) ListByDonor(ctx context.Context, donorID string) ([]*donation.Donation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+donationColumns+` FROM donations WHERE donor_id = $1 ORDER BY created_at DESC`, donorID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return collectDonations(rows)
}

// ListAvailable returns scheduled, unclaimed pickups of other donors, earliest window first.
func (s *DonationStore) ListAvailable(ctx context.Context, excludeDonorID string, limit int) ([]*donation.Donation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE status = 'scheduled' AND donor_id <> $1 AND pickup->>'driverId' IS NULL
		ORDER BY (pickup->>'windowStart')::timestamptz ASC
		LIMIT $2`,
		excludeDonorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list available pickups: %w", err)
	}
	return collectDonations(rows)
}

// Update replaces d if its stored status is still from.
func (s *DonationStore) Update(ctx context.Context, d *donation.Donation, from donation.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE donations SET title = $2, description = $3, category = $4, item_count = $5,
			attributes = $6, photos = $7, status = $8, pickup = $9, updated_at = $10
		WHERE id = $1 AND status = $11`,
		d.ID, d.Title, d.Description, string(d.Category), d.ItemCount,
		d.Attributes, d.Photos, string(d.Status), d.Pickup, d.UpdatedAt, string(from),
	)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, d.ID); err != nil {
			return err
		}
		return donation.ErrConflict
	}
	return nil
}

// Delete removes the donation if its stored status is still from.
func (s *DonationStore) Delete(ctx context.Context, id string, from donation.Status) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM donations WHERE id = $1 AND status = $2`, id, string(from))
	if err != nil {
		if IsInvalidText(err) {
			return donation.ErrNotFound
		}
		return fmt.Errorf("delete donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return donation.ErrConflict
	}
	return nil
}
