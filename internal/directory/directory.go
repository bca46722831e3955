// ABOUTME: Directory service over OEM request and provider profile collections
// ABOUTME: Applies submission defaults, display ordering and admin updates

package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/deflink/deflink/internal/entity"
	"github.com/deflink/deflink/internal/store"
)

var requestKind = &entity.Kind[OemRequest]{
	Name:    "oem-request",
	Index:   "oem-requests",
	Initial: func() OemRequest { return OemRequest{Status: RequestOpen} },
	ID:      func(r OemRequest) string { return r.ID },
	WithID: func(r OemRequest, id string) OemRequest {
		r.ID = id
		return r
	},
	Seed: mustLoadSeed[OemRequest]("oem_requests.yaml"),
}

var providerKind = &entity.Kind[ProviderProfile]{
	Name:    "provider-profile",
	Index:   "provider-profiles",
	Initial: func() ProviderProfile { return ProviderProfile{Status: ProviderDraft, Schwerpunkte: []Schwerpunkt{}} },
	ID:      func(p ProviderProfile) string { return p.ID },
	WithID: func(p ProviderProfile, id string) ProviderProfile {
		p.ID = id
		return p
	},
	Seed: mustLoadSeed[ProviderProfile]("providers.yaml"),
}

// Options configures a Directory.
type Options struct {
	// ProviderDefaultStatus is assigned to submitted provider profiles.
	// Defaults to ProviderDraft.
	ProviderDefaultStatus ProviderStatus
	// Seed enables writing the demo dataset on first access.
	Seed bool
	// DefaultPasswordHash produces the hash stored when no settings exist.
	DefaultPasswordHash func() (string, error)
}

// Directory implements the DefLink domain operations.
type Directory struct {
	requests      *entity.Indexed[OemRequest]
	providers     *entity.Indexed[ProviderProfile]
	settings      *SettingsStore
	defaultStatus ProviderStatus
	seed          bool
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Directory backed by s.
func New(s store.Store, opts Options) *Directory {
	status := opts.ProviderDefaultStatus
	if status == "" {
		status = ProviderDraft
	}
	return &Directory{
		requests:      entity.NewIndexed(s, requestKind),
		providers:     entity.NewIndexed(s, providerKind),
		settings:      newSettingsStore(s, opts.DefaultPasswordHash),
		defaultStatus: status,
		seed:          opts.Seed,
		now:           time.Now,
		logger:        slog.Default().With("component", "directory"),
	}
}

// Settings returns the settings singleton.
func (d *Directory) Settings() *SettingsStore {
	return d.settings
}

// EnsureSeed seeds both collections and the settings record.
func (d *Directory) EnsureSeed(ctx context.Context) error {
	if d.seed {
		if err := d.requests.EnsureSeed(ctx); err != nil {
			return err
		}
		if err := d.providers.EnsureSeed(ctx); err != nil {
			return err
		}
	}
	return d.settings.EnsureSeed(ctx)
}

// SubmitRequest stores a new OEM request. The id, creation time and status
// are assigned here and any client values for them are ignored.
func (d *Directory) SubmitRequest(ctx context.Context, r OemRequest) (OemRequest, error) {
	if err := validateRequest(r); err != nil {
		return OemRequest{}, err
	}
	r.ID = ""
	r.ErstelltAm = d.now().UTC()
	r.Status = RequestOpen

	created, err := d.requests.Create(ctx, r)
	if err != nil {
		return OemRequest{}, fmt.Errorf("creating oem request: %w", err)
	}
	d.logger.Info("oem request submitted", "id", created.ID, "kategorie", created.Kategorie)
	return created, nil
}

// ListRequests returns every OEM request, newest first.
func (d *Directory) ListRequests(ctx context.Context) ([]OemRequest, error) {
	if d.seed {
		if err := d.requests.EnsureSeed(ctx); err != nil {
			return nil, err
		}
	}
	all, err := d.requests.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ErstelltAm.After(all[j].ErstelltAm)
	})
	return all, nil
}

// GetRequest returns one OEM request or store.ErrNotFound.
func (d *Directory) GetRequest(ctx context.Context, id string) (OemRequest, error) {
	e := d.requests.Entity(id)
	exists, err := e.Exists(ctx)
	if err != nil {
		return OemRequest{}, err
	}
	if !exists {
		return OemRequest{}, fmt.Errorf("oem request %s: %w", id, store.ErrNotFound)
	}
	return e.State(ctx)
}

// UpdateRequest applies an admin patch. Returns store.ErrNotFound when the
// request does not exist.
func (d *Directory) UpdateRequest(ctx context.Context, id string, p OemRequestPatch) (OemRequest, error) {
	if err := p.Validate(); err != nil {
		return OemRequest{}, err
	}
	updated, err := d.requests.Entity(id).Update(ctx, p)
	if err != nil {
		return OemRequest{}, fmt.Errorf("updating oem request %s: %w", id, err)
	}
	d.logger.Info("oem request updated", "id", id, "status", updated.Status)
	return updated, nil
}

// DeleteRequest removes an OEM request and reports whether it existed.
func (d *Directory) DeleteRequest(ctx context.Context, id string) (bool, error) {
	deleted, err := d.requests.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting oem request %s: %w", id, err)
	}
	if deleted {
		d.logger.Info("oem request deleted", "id", id)
	}
	return deleted, nil
}

// SubmitProvider stores a new provider profile with the configured default
// status.
func (d *Directory) SubmitProvider(ctx context.Context, p ProviderProfile) (ProviderProfile, error) {
	if err := validateProvider(p); err != nil {
		return ProviderProfile{}, err
	}
	p.ID = ""
	p.ErstelltAm = d.now().UTC()
	p.Status = d.defaultStatus

	created, err := d.providers.Create(ctx, p)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("creating provider profile: %w", err)
	}
	d.logger.Info("provider profile submitted", "id", created.ID, "status", created.Status)
	return created, nil
}

// ListProviders returns provider profiles sorted by company name. With
// publishedOnly set, drafts are left out.
func (d *Directory) ListProviders(ctx context.Context, publishedOnly bool) ([]ProviderProfile, error) {
	if d.seed {
		if err := d.providers.EnsureSeed(ctx); err != nil {
			return nil, err
		}
	}
	all, err := d.providers.All(ctx)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, p := range all {
		if publishedOnly && p.Status != ProviderPublished {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Firmenname) < strings.ToLower(out[j].Firmenname)
	})
	return out, nil
}

// UpdateProvider applies an admin patch, typically a status toggle.
func (d *Directory) UpdateProvider(ctx context.Context, id string, p ProviderProfilePatch) (ProviderProfile, error) {
	if err := p.Validate(); err != nil {
		return ProviderProfile{}, err
	}
	updated, err := d.providers.Entity(id).Update(ctx, p)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("updating provider profile %s: %w", id, err)
	}
	d.logger.Info("provider profile updated", "id", id, "status", updated.Status)
	return updated, nil
}

// DeleteProvider removes a provider profile and reports whether it existed.
func (d *Directory) DeleteProvider(ctx context.Context, id string) (bool, error) {
	deleted, err := d.providers.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting provider profile %s: %w", id, err)
	}
	if deleted {
		d.logger.Info("provider profile deleted", "id", id)
	}
	return deleted, nil
}

// RepairReport lists the per-collection results of Repair.
type RepairReport struct {
	Requests  entity.RepairReport `json:"requests"`
	Providers entity.RepairReport `json:"providers"`
}

// Repair reconciles both collection indexes with their records.
func (d *Directory) Repair(ctx context.Context) (RepairReport, error) {
	var (
		report RepairReport
		err    error
	)
	if report.Requests, err = d.requests.Repair(ctx); err != nil {
		return report, fmt.Errorf("repairing oem requests: %w", err)
	}
	if report.Providers, err = d.providers.Repair(ctx); err != nil {
		return report, fmt.Errorf("repairing provider profiles: %w", err)
	}
	return report, nil
}
