package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lance13c/shopassist/internal/logging"
)

// MsgProfileRequired is shown when a profile is saved without name or phone
const MsgProfileRequired = "Nama dan nomor HP wajib diisi"

// Profile is the data written into checkout forms
type Profile struct {
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	PostalCode string    `json:"postalCode"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate requires the two fields every checkout form asks for. Values are
// stored as given; a whitespace-only value counts as present.
func (p Profile) Validate() error {
	if p.Name == "" || p.Phone == "" {
		return &ValidationError{Message: MsgProfileRequired}
	}
	return nil
}

// ProfileStore owns the persisted profile record
type ProfileStore struct {
	kv  KV
	now func() time.Time
}

// NewProfileStore creates a profile store over kv
func NewProfileStore(kv KV) *ProfileStore {
	return &ProfileStore{kv: kv, now: time.Now}
}

// Save validates and overwrites the stored profile. An invalid profile is
// rejected with a *ValidationError and nothing is written.
func (s *ProfileStore) Save(ctx context.Context, p Profile) (Profile, error) {
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	p.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := s.kv.Set(ctx, ProfileKey, string(data)); err != nil {
		return Profile{}, fmt.Errorf("failed to save profile: %w", err)
	}

	logging.Debug("Profile saved: %s", p.Name)
	return p, nil
}

// Load returns the stored profile, or nil when none has been saved.
// A record that no longer parses is treated as absent.
func (s *ProfileStore) Load(ctx context.Context) (*Profile, error) {
	raw, found, err := s.kv.Get(ctx, ProfileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return nil, nil
	}

	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logging.Warn("Ignoring malformed %s record: %v", ProfileKey, err)
		return nil, nil
	}

	return &p, nil
}
