// ABOUTME: Record types for OEM requests, provider profiles and settings
// ABOUTME: Defines the closed value sets for categories, focus areas and statuses

package directory

import "time"

// Kategorie is the optional category of an OEM request.
type Kategorie string

const (
	KategorieSoftware          Kategorie = "Software"
	KategorieHardware          Kategorie = "Hardware"
	KategorieSystemintegration Kategorie = "Systemintegration"
	KategorieKIData            Kategorie = "KI/Data"
	KategorieBeratung          Kategorie = "Beratung"
)

// Valid reports whether k is one of the known categories.
func (k Kategorie) Valid() bool {
	switch k {
	case KategorieSoftware, KategorieHardware, KategorieSystemintegration, KategorieKIData, KategorieBeratung:
		return true
	}
	return false
}

// RequestStatus tracks whether an OEM request is still being handled.
type RequestStatus string

const (
	RequestOpen RequestStatus = "offen"
	RequestDone RequestStatus = "erledigt"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	return s == RequestOpen || s == RequestDone
}

// ProviderStatus controls whether a profile appears in the public listing.
type ProviderStatus string

const (
	ProviderDraft     ProviderStatus = "draft"
	ProviderPublished ProviderStatus = "freigeschaltet"
)

// Valid reports whether s is a known provider status.
func (s ProviderStatus) Valid() bool {
	return s == ProviderDraft || s == ProviderPublished
}

// Schwerpunkt is a provider focus area.
type Schwerpunkt string

const (
	SchwerpunktSoftware          Schwerpunkt = "Softwareentwicklung"
	SchwerpunktKIData            Schwerpunkt = "KI & Data"
	SchwerpunktSystemintegration Schwerpunkt = "Systemintegration"
	SchwerpunktPrototypen        Schwerpunkt = "Prototypen/MVP"
	SchwerpunktBeratung          Schwerpunkt = "Beratung/Strategie"
	SchwerpunktSonstiges         Schwerpunkt = "Sonstiges"
)

// Valid reports whether s is one of the known focus areas.
func (s Schwerpunkt) Valid() bool {
	switch s {
	case SchwerpunktSoftware, SchwerpunktKIData, SchwerpunktSystemintegration,
		SchwerpunktPrototypen, SchwerpunktBeratung, SchwerpunktSonstiges:
		return true
	}
	return false
}

// MaxKurzbeschreibung is the maximum length of a provider's short description
// in characters.
const MaxKurzbeschreibung = 100

// OemRequest is a need posted by an OEM buyer.
type OemRequest struct {
	ID              string        `json:"id" yaml:"id"`
	Unternehmen     string        `json:"unternehmen" yaml:"unternehmen" validate:"nonblank"`
	Ansprechpartner string        `json:"ansprechpartner" yaml:"ansprechpartner" validate:"nonblank"`
	Email           string        `json:"email" yaml:"email" validate:"nonblank,email"`
	Telefon         string        `json:"telefon,omitempty" yaml:"telefon"`
	Betreff         string        `json:"betreff" yaml:"betreff" validate:"nonblank"`
	Beschreibung    string        `json:"beschreibung" yaml:"beschreibung" validate:"nonblank"`
	Kategorie       Kategorie     `json:"kategorie,omitempty" yaml:"kategorie" validate:"kategorie"`
	Zeitraum        string        `json:"zeitraum,omitempty" yaml:"zeitraum"`
	ErstelltAm      time.Time     `json:"erstelltAm" yaml:"erstelltAm"`
	Status          RequestStatus `json:"status" yaml:"status"`
}

// ProviderProfile is a service provider's directory entry.
type ProviderProfile struct {
	ID               string         `json:"id" yaml:"id"`
	Firmenname       string         `json:"firmenname" yaml:"firmenname" validate:"nonblank"`
	Ansprechpartner  string         `json:"ansprechpartner" yaml:"ansprechpartner" validate:"nonblank"`
	Email            string         `json:"email" yaml:"email" validate:"nonblank,email"`
	Telefon          string         `json:"telefon,omitempty" yaml:"telefon"`
	LogoURL          string         `json:"logoUrl,omitempty" yaml:"logoUrl"`
	Kurzbeschreibung string         `json:"kurzbeschreibung" yaml:"kurzbeschreibung" validate:"nonblank,max=100"`
	Beschreibung     string         `json:"beschreibung" yaml:"beschreibung" validate:"nonblank"`
	Schwerpunkte     []Schwerpunkt  `json:"schwerpunkte" yaml:"schwerpunkte" validate:"nonblank,dive,schwerpunkt"`
	Standort         string         `json:"standort" yaml:"standort" validate:"nonblank"`
	Website          string         `json:"website,omitempty" yaml:"website"`
	Status           ProviderStatus `json:"status" yaml:"status"`
	ErstelltAm       time.Time      `json:"erstelltAm" yaml:"erstelltAm"`
}

// Settings is the process-wide settings record.
type Settings struct {
	OemPasswordHash string `json:"oemPasswordHash"`
}
