// ABOUTME: Typed partial updates applied by the admin routes
// ABOUTME: Only mutable fields are patchable; id and erstelltAm have no patch field

package directory

// OemRequestPatch updates the fields that are set.
type OemRequestPatch struct {
	Unternehmen     *string        `json:"unternehmen" validate:"omitempty,nonblank"`
	Ansprechpartner *string        `json:"ansprechpartner" validate:"omitempty,nonblank"`
	Email           *string        `json:"email" validate:"omitempty,nonblank,email"`
	Telefon         *string        `json:"telefon"`
	Betreff         *string        `json:"betreff" validate:"omitempty,nonblank"`
	Beschreibung    *string        `json:"beschreibung" validate:"omitempty,nonblank"`
	Kategorie       *Kategorie     `json:"kategorie" validate:"omitempty,kategorie"`
	Zeitraum        *string        `json:"zeitraum"`
	Status          *RequestStatus `json:"status" validate:"omitempty,requeststatus"`
}

// Validate rejects patches that would clear a required field or set an
// unknown enum value.
func (p OemRequestPatch) Validate() error {
	return check(p)
}

// Apply implements entity.Patch.
func (p OemRequestPatch) Apply(r *OemRequest) {
	set(&r.Unternehmen, p.Unternehmen)
	set(&r.Ansprechpartner, p.Ansprechpartner)
	set(&r.Email, p.Email)
	set(&r.Telefon, p.Telefon)
	set(&r.Betreff, p.Betreff)
	set(&r.Beschreibung, p.Beschreibung)
	set(&r.Kategorie, p.Kategorie)
	set(&r.Zeitraum, p.Zeitraum)
	set(&r.Status, p.Status)
}

// ProviderProfilePatch updates the fields that are set. The admin UI
// typically only sends status.
type ProviderProfilePatch struct {
	Firmenname       *string         `json:"firmenname" validate:"omitempty,nonblank"`
	Ansprechpartner  *string         `json:"ansprechpartner" validate:"omitempty,nonblank"`
	Email            *string         `json:"email" validate:"omitempty,nonblank,email"`
	Telefon          *string         `json:"telefon"`
	LogoURL          *string         `json:"logoUrl"`
	Kurzbeschreibung *string         `json:"kurzbeschreibung" validate:"omitempty,nonblank,max=100"`
	Beschreibung     *string         `json:"beschreibung" validate:"omitempty,nonblank"`
	Schwerpunkte     *[]Schwerpunkt  `json:"schwerpunkte" validate:"omitempty,nonblank,dive,schwerpunkt"`
	Standort         *string         `json:"standort" validate:"omitempty,nonblank"`
	Website          *string         `json:"website"`
	Status           *ProviderStatus `json:"status" validate:"omitempty,providerstatus"`
}

func (p ProviderProfilePatch) Validate() error {
	return check(p)
}

// Apply implements entity.Patch.
func (p ProviderProfilePatch) Apply(pp *ProviderProfile) {
	set(&pp.Firmenname, p.Firmenname)
	set(&pp.Ansprechpartner, p.Ansprechpartner)
	set(&pp.Email, p.Email)
	set(&pp.Telefon, p.Telefon)
	set(&pp.LogoURL, p.LogoURL)
	set(&pp.Kurzbeschreibung, p.Kurzbeschreibung)
	set(&pp.Beschreibung, p.Beschreibung)
	if p.Schwerpunkte != nil {
		pp.Schwerpunkte = append([]Schwerpunkt(nil), (*p.Schwerpunkte)...)
	}
	set(&pp.Standort, p.Standort)
	set(&pp.Website, p.Website)
	set(&pp.Status, p.Status)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
