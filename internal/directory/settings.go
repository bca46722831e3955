// ABOUTME: Settings singleton holding the shared OEM password hash
// ABOUTME: Seeds the default credential on first access without overwriting

package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/deflink/deflink/internal/entity"
	"github.com/deflink/deflink/internal/store"
)

var settingsKind = &entity.Kind[Settings]{
	Name:    "settings",
	Initial: func() Settings { return Settings{} },
	ID:      func(Settings) string { return entity.SingletonID },
	WithID:  func(s Settings, _ string) Settings { return s },
}

// SettingsStore reads and writes the settings record.
type SettingsStore struct {
	entity      *entity.Entity[Settings]
	defaultHash func() (string, error)
}

func newSettingsStore(s store.Store, defaultHash func() (string, error)) *SettingsStore {
	return &SettingsStore{
		entity:      entity.New(s, settingsKind, entity.SingletonID),
		defaultHash: defaultHash,
	}
}

// EnsureSeed stores the default password hash when no settings record
// exists. Concurrent callers never overwrite each other.
func (s *SettingsStore) EnsureSeed(ctx context.Context) error {
	exists, err := s.entity.Exists(ctx)
	if err != nil || exists {
		return err
	}
	if s.defaultHash == nil {
		return errors.New("settings: no default password configured")
	}

	hash, err := s.defaultHash()
	if err != nil {
		return fmt.Errorf("hashing default password: %w", err)
	}
	_, err = s.entity.SaveIfAbsent(ctx, Settings{OemPasswordHash: hash})
	return err
}

// PasswordHash returns the stored OEM password hash, seeding it first if
// needed.
func (s *SettingsStore) PasswordHash(ctx context.Context) (string, error) {
	if err := s.EnsureSeed(ctx); err != nil {
		return "", err
	}
	settings, err := s.entity.State(ctx)
	if err != nil {
		return "", err
	}
	return settings.OemPasswordHash, nil
}

// SetPasswordHash replaces the stored hash.
func (s *SettingsStore) SetPasswordHash(ctx context.Context, hash string) error {
	_, err := s.entity.Patch(ctx, entity.PatchFunc[Settings](func(st *Settings) {
		st.OemPasswordHash = hash
	}))
	return err
}
