package donation

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]*Donation
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]*Donation)}
}

// Create stores d.
func (r *MemoryRepo) Create(_ context.Context, d *Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = clone(d)
	return nil
}

// Get returns a copy of the donation with id.
func (r *MemoryRepo) Get(_ context.Context, id string) (*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

// ListByDonor returns the donor's donations, newest first.
func (r *MemoryRepo) ListByDonor(_ context.Context, donorID string) ([]*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Donation{}
	for _, d := range r.byID {
		if d.DonorID == donorID {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListAvailable returns scheduled, unclaimed pickups of other donors, earliest window first.
func (r *MemoryRepo) ListAvailable(_ context.Context, excludeDonorID string, limit int) ([]*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Donation{}
	for _, d := range r.byID {
		if d.Status == StatusScheduled && d.DonorID != excludeDonorID && d.Pickup != nil && d.Pickup.DriverID == nil {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pickup.WindowStart.Before(out[j].Pickup.WindowStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Update replaces d if its stored status is still from.
func (r *MemoryRepo) Update(_ context.Context, d *Donation, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[d.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrConflict
	}
	r.byID[d.ID] = clone(d)
	return nil
}

// Delete removes the donation if its stored status is still from.
func (r *MemoryRepo) Delete(_ context.Context, id string, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrConflict
	}
	delete(r.byID, id)
	return nil
}

// clone returns a deep copy of d.
func clone(d *Donation) *Donation {
	cp := *d
	cp.Attributes = make(map[string]string, len(d.Attributes))
	for k, v := range d.Attributes {
		cp.Attributes[k] = v
	}
	cp.Photos = make([]string, len(d.Photos))
	copy(cp.Photos, d.Photos)
	if d.Pickup != nil {
		p := *d.Pickup
		if d.Pickup.DriverID != nil {
			id := *d.Pickup.DriverID
			p.DriverID = &id
		}
		cp.Pickup = &p
	}
	return &cp
}
