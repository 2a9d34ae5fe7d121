package core

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	SectionOutbound Section = "ida"
	SectionReturn   Section = "vuelta"
	SectionParcel   Section = "encomienda"
)

const (
	PackageEnvelope PackageType = "sobre"
	PackageBox      PackageType = "caja"
	PackageBicycle  PackageType = "bicicleta"
	PackageBag      PackageType = "bolsa"
	PackageGeneric  PackageType = "paquete"
	PackageParcel   PackageType = "encomienda"
)

// NoDescription is stored when nothing usable is left of a sentence.
const NoDescription = "Sin descripción"

type (
	// Section is the ledger column a trip belongs to.
	Section string

	PackageType string

	// Trip is one monetary entry of the day ledger.
	Trip struct {
		ID          *int64       `json:"id,omitempty"` // nil until storage assigns it
		Date        string       `json:"date"`         // YYYY-MM-DD, local civil date
		Section     Section      `json:"section"`
		Passenger   *string      `json:"passenger,omitempty"`
		Destination *string      `json:"destination,omitempty"`
		Description string       `json:"description"`
		Amount      float64      `json:"amount"`
		Time        *string      `json:"time,omitempty"` // HH:MM, 24h
		PackageType *PackageType `json:"package_type,omitempty"`
	}

	// ParseResult is what the sentence parser extracts from one utterance.
	ParseResult struct {
		Passenger   *string      `json:"passenger,omitempty"`
		Destination *string      `json:"destination,omitempty"`
		Description string       `json:"description"`
		Amount      float64      `json:"amount"`
		Time        *string      `json:"time,omitempty"`
		Date        *string      `json:"date,omitempty"`
		PackageType *PackageType `json:"package_type,omitempty"`
	}
)

var (
	ErrInvalidRecord          = errors.New("invalid trip record")
	ErrEmptyDescription       = errors.New("empty description")
	ErrMissingAmount          = errors.New("missing amount")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTime            = errors.New("invalid time")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidSection         = errors.New("invalid section")
	ErrNotFound               = errors.New("trip not found")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Sections lists every section in display order.
func Sections() []Section {
	return []Section{SectionOutbound, SectionReturn, SectionParcel}
}

func (s Section) IsValid() bool {
	switch s {
	case SectionOutbound, SectionReturn, SectionParcel:
		return true
	default:
		return false
	}
}

// ParseSection accepts the stored value as well as the English aliases.
func ParseSection(s string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ida", "outbound":
		return SectionOutbound, nil
	case "vuelta", "return":
		return SectionReturn, nil
	case "encomienda", "parcel":
		return SectionParcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSection, s)
}

func (p PackageType) String() string {
	return string(p)
}

// ValidClock reports whether s is a zero-padded 24h HH:MM value.
func ValidClock(s string) bool {
	return clockRe.MatchString(s)
}

// Validate checks the record invariants before it reaches storage.
func (t Trip) Validate() error {
	if t.ID != nil {
		return fmt.Errorf("%w: id must be empty on insert", ErrInvalidRecord)
	}
	if _, err := ParseDay(t.Date); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if !t.Section.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrInvalidSection, t.Section)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyDescription)
	}
	if t.Amount < 0 || math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidRecord, ErrInvalidAmount, t.Amount)
	}
	if t.Time != nil && !ValidClock(*t.Time) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrInvalidTime, *t.Time)
	}
	return nil
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
