package session

import (
	"context"

	"donorlink/internal/client/credstore"
)

// MarkDonationsStale flags the cached donation list for reload. Sign-in and
// sign-out set it, since the list belongs to the previous user.
func (m *Manager) MarkDonationsStale(ctx context.Context) error {
	return m.store.Set(ctx, credstore.KeyDonationCartNeedsRefresh, "true")
}

// TakeDonationsRefresh reports whether the donation list must be reloaded and clears the flag.
func (m *Manager) TakeDonationsRefresh(ctx context.Context) (bool, error) {
	_, ok, err := m.store.Take(ctx, credstore.KeyDonationCartNeedsRefresh)
	return ok, err
}

func (m *Manager) markDonationsStale(ctx context.Context) {
	if err := m.MarkDonationsStale(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to flag donation list for refresh")
	}
}
