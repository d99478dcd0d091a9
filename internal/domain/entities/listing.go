// Package entities contains core domain data structures.
package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// CurrentSchemaVersion is the listing schema version written by this build.
const CurrentSchemaVersion = 1

// ListingStatus is the visibility state of a listing.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusArchived ListingStatus = "archived"
)

// IsValid checks if the status is known.
func (s ListingStatus) IsValid() bool {
	return s == StatusActive || s == StatusArchived
}

// Other returns the opposite status.
func (s ListingStatus) Other() ListingStatus {
	if s == StatusArchived {
		return StatusActive
	}
	return StatusArchived
}

// InteractionType describes how the exchange takes place.
type InteractionType string

const (
	InteractionVirtual  InteractionType = "virtual"
	InteractionInPerson InteractionType = "in_person"
)

// DateRange bounds when a request should be fulfilled.
type DateRange struct {
	Start string `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Listing is the payload of a request or an offer.
// Decoding ignores unknown fields so entries written by newer schema versions stay readable.
type Listing struct {
	Kind              EntityKind      `json:"kind" validate:"required,oneof=offer request"`
	Title             string          `json:"title" validate:"required,max=200"`
	Description       string          `json:"description" validate:"required,max=5000"`
	Status            ListingStatus   `json:"status" validate:"required,oneof=active archived"`
	ContactPreference string          `json:"contact_preference,omitempty"`
	TimePreference    string          `json:"time_preference,omitempty"`
	TimeZone          string          `json:"time_zone,omitempty"`
	InteractionType   InteractionType `json:"interaction_type,omitempty" validate:"omitempty,oneof=virtual in_person"`
	Links             []string        `json:"links,omitempty" validate:"dive,url"`
	Capabilities      []string        `json:"capabilities,omitempty" validate:"dive,required"`
	Requirements      []string        `json:"requirements,omitempty" validate:"dive,required"`
	DateRange         *DateRange      `json:"date_range,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateListingKind, Listing{})
	return v
}

// validateListingKind checks the fields that only one kind requires.
func validateListingKind(sl validator.StructLevel) {
	l := sl.Current().Interface().(Listing)
	switch l.Kind {
	case KindOffer:
		if len(l.Capabilities) == 0 {
			sl.ReportError(l.Capabilities, "capabilities", "Capabilities", "required", "")
		}
	case KindRequest:
		if len(l.Requirements) == 0 {
			sl.ReportError(l.Requirements, "requirements", "Requirements", "required", "")
		}
	}
}

// Validate checks the listing against its schema rules.
func (l *Listing) Validate() error {
	if l == nil {
		return errors.New("listing is required")
	}
	return validationError(validate.Struct(l))
}

// validationError reports the first failed field of a validator error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("field %s failed %q validation", fe.Field(), fe.Tag())
	}
	return err
}

// Clone returns a deep copy.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := *l
	out.Links = slices.Clone(l.Links)
	out.Capabilities = slices.Clone(l.Capabilities)
	out.Requirements = slices.Clone(l.Requirements)
	if l.DateRange != nil {
		dr := *l.DateRange
		out.DateRange = &dr
	}
	return &out
}

// EncodeListing serializes a listing into an entry at the current schema version.
func EncodeListing(l *Listing) (*Entry, error) {
	body, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encoding listing: %w", err)
	}
	return &Entry{
		Kind:          l.Kind,
		SchemaVersion: CurrentSchemaVersion,
		Body:          body,
	}, nil
}

// DecodeListing reads a listing back from an entry.
func DecodeListing(e *Entry) (*Listing, error) {
	if e == nil {
		return nil, errors.New("entry is nil")
	}
	var l Listing
	if err := json.Unmarshal(e.Body, &l); err != nil {
		return nil, fmt.Errorf("decoding listing (schema v%d): %w", e.SchemaVersion, err)
	}
	if l.Kind == "" {
		l.Kind = e.Kind
	}
	return &l, nil
}
