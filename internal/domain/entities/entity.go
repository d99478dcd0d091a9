package entities

import (
	"fmt"
	"time"
)

// Entity is the resolved view of a listing chain: its stable root address
// together with the latest payload.
type Entity struct {
	ID            Hash          `json:"id"`
	Kind          EntityKind    `json:"kind"`
	Author        Hash          `json:"author"`
	Latest        Hash          `json:"latest_action"`
	Listing       *Listing      `json:"listing"`
	Relationships Relationships `json:"relationships,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewEntity builds an entity view from its root and latest records.
func NewEntity(root, latest *Record) (*Entity, error) {
	listing, err := DecodeListing(latest.Entry)
	if err != nil {
		return nil, err
	}
	if !listing.Kind.IsValid() {
		return nil, fmt.Errorf("%s is a %s, not a listing", root.Action.Hash.Short(), listing.Kind)
	}
	return &Entity{
		ID:        root.Action.Hash,
		Kind:      listing.Kind,
		Author:    root.Action.Author,
		Latest:    latest.Action.Hash,
		Listing:   listing,
		CreatedAt: root.Action.Timestamp,
		UpdatedAt: latest.Action.Timestamp,
	}, nil
}

// Tags returns the tag labels of the entity, if relationships were loaded.
func (e *Entity) Tags() []string {
	targets := e.Relationships[RelationTags]
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Label)
	}
	return out
}
