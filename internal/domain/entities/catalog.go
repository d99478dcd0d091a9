package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Catalog kinds. They are stored like listings but never sit in listing
// status buckets, so EntityKinds leaves them out.
const (
	KindMediumOfExchange EntityKind = "medium_of_exchange"
	KindServiceType      EntityKind = "service_type"
)

// Catalog paths.
const (
	MediumsOfExchangePath Path = "mediums_of_exchange"
	ServiceTypesPath      Path = "service_types"
)

// ResourceSpecPrefix prefixes the resource specification assigned to a
// medium of exchange when it is approved.
const ResourceSpecPrefix = "resource_spec_"

// ModerationStatus is the review state of a suggested medium of exchange.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ModerationStatuses returns every moderation status.
func ModerationStatuses() []ModerationStatus {
	return []ModerationStatus{ModerationPending, ModerationApproved, ModerationRejected}
}

// IsValid checks if the status is known.
func (s ModerationStatus) IsValid() bool {
	return s == ModerationPending || s == ModerationApproved || s == ModerationRejected
}

// ModerationBucket returns the bucket of a moderation status,
// e.g. "mediums_of_exchange.status.pending".
func ModerationBucket(status ModerationStatus) Path {
	return MediumsOfExchangePath + ".status." + Path(status)
}

// ModerationBuckets returns every moderation bucket.
func ModerationBuckets() []Path {
	out := make([]Path, 0, 3)
	for _, s := range ModerationStatuses() {
		out = append(out, ModerationBucket(s))
	}
	return out
}

// ExchangeType classifies a medium of exchange.
type ExchangeType string

const (
	ExchangeBase     ExchangeType = "base"
	ExchangeCurrency ExchangeType = "currency"
)

// MediumOfExchange is something listings can be paid in, e.g. a currency
// or time credits. Only approved mediums can be linked from listings.
type MediumOfExchange struct {
	Code           string       `json:"code" validate:"required,max=32"`
	Name           string       `json:"name" validate:"required,max=100"`
	Description    string       `json:"description,omitempty" validate:"max=1000"`
	ExchangeType   ExchangeType `json:"exchange_type" validate:"required,oneof=base currency"`
	ResourceSpecID string       `json:"resource_spec_id,omitempty"`
}

// Validate checks the medium against its schema rules.
func (m *MediumOfExchange) Validate() error {
	if m == nil {
		return errors.New("medium of exchange is required")
	}
	return validationError(validate.Struct(m))
}

// ServiceType is an administrator-curated category of service.
type ServiceType struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
	Technical   bool   `json:"technical"`
}

// Validate checks the service type against its schema rules.
func (st *ServiceType) Validate() error {
	if st == nil {
		return errors.New("service type is required")
	}
	return validationError(validate.Struct(st))
}

// EncodeCatalog serializes a catalog payload into an entry of kind.
func EncodeCatalog(kind EntityKind, v any) (*Entry, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", kind, err)
	}
	return &Entry{Kind: kind, SchemaVersion: CurrentSchemaVersion, Body: body}, nil
}

// DecodeMedium reads a medium of exchange back from an entry.
func DecodeMedium(e *Entry) (*MediumOfExchange, error) {
	var m MediumOfExchange
	if err := decodeCatalog(e, KindMediumOfExchange, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeServiceType reads a service type back from an entry.
func DecodeServiceType(e *Entry) (*ServiceType, error) {
	var st ServiceType
	if err := decodeCatalog(e, KindServiceType, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func decodeCatalog(e *Entry, kind EntityKind, v any) error {
	if e == nil {
		return errors.New("entry is nil")
	}
	if e.Kind != kind {
		return fmt.Errorf("entry is a %s, not a %s", e.Kind, kind)
	}
	if err := json.Unmarshal(e.Body, v); err != nil {
		return fmt.Errorf("decoding %s (schema v%d): %w", kind, e.SchemaVersion, err)
	}
	return nil
}

// Medium is the resolved view of a medium of exchange chain.
type Medium struct {
	ID        Hash              `json:"id"`
	Author    Hash              `json:"author"`
	Latest    Hash              `json:"latest_action"`
	Status    ModerationStatus  `json:"status"`
	Medium    *MediumOfExchange `json:"medium"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewMedium builds a medium view from its root and latest records.
func NewMedium(root, latest *Record, status ModerationStatus) (*Medium, error) {
	m, err := DecodeMedium(latest.Entry)
	if err != nil {
		return nil, err
	}
	return &Medium{
		ID:        root.Action.Hash,
		Author:    root.Action.Author,
		Latest:    latest.Action.Hash,
		Status:    status,
		Medium:    m,
		CreatedAt: root.Action.Timestamp,
		UpdatedAt: latest.Action.Timestamp,
	}, nil
}

// Service is the resolved view of a service type chain.
type Service struct {
	ID          Hash         `json:"id"`
	Author      Hash         `json:"author"`
	Latest      Hash         `json:"latest_action"`
	ServiceType *ServiceType `json:"service_type"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewService builds a service type view from its root and latest records.
func NewService(root, latest *Record) (*Service, error) {
	st, err := DecodeServiceType(latest.Entry)
	if err != nil {
		return nil, err
	}
	return &Service{
		ID:          root.Action.Hash,
		Author:      root.Action.Author,
		Latest:      latest.Action.Hash,
		ServiceType: st,
		CreatedAt:   root.Action.Timestamp,
		UpdatedAt:   latest.Action.Timestamp,
	}, nil
}
