package entities

import (
	"encoding/json"
	"strconv"
)

// EntityKind is the application type of an entry.
type EntityKind string

const (
	KindOffer   EntityKind = "offer"
	KindRequest EntityKind = "request"
)

// EntityKinds returns every listing kind.
func EntityKinds() []EntityKind {
	return []EntityKind{KindOffer, KindRequest}
}

// IsValid checks if the kind is known.
func (k EntityKind) IsValid() bool {
	return k == KindOffer || k == KindRequest
}

// Plural returns the collection name used in paths.
func (k EntityKind) Plural() string {
	return string(k) + "s"
}

// ParseEntityKind accepts singular or plural forms.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch s {
	case "offer", "offers":
		return KindOffer, true
	case "request", "requests":
		return KindRequest, true
	}
	return "", false
}

// Entry is an immutable, content-addressed payload.
type Entry struct {
	Kind          EntityKind      `json:"kind"`
	SchemaVersion int             `json:"schema_version"`
	Body          json.RawMessage `json:"body"`
}

// Hash returns the content hash of the entry.
func (e *Entry) Hash() Hash {
	return NewHash(HashEntry,
		[]byte(e.Kind),
		[]byte(strconv.Itoa(e.SchemaVersion)),
		e.Body,
	)
}
