package entities

import (
	"slices"
	"sort"
)

// RelationKind names a relationship link set.
type RelationKind string

const (
	RelationTags             RelationKind = "tags"
	RelationCreator          RelationKind = "creator"
	RelationOrganization     RelationKind = "organization"
	RelationMediumOfExchange RelationKind = "medium_of_exchange"
	RelationServiceType      RelationKind = "service_type"
)

var relationKinds = map[RelationKind]bool{
	RelationTags:             true,
	RelationCreator:          true,
	RelationOrganization:     true,
	RelationMediumOfExchange: true,
	RelationServiceType:      true,
}

// RelationKinds returns every known relationship kind in a stable order.
func RelationKinds() []RelationKind {
	out := make([]RelationKind, 0, len(relationKinds))
	for k := range relationKinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// IsValid checks if the kind is known.
func (k RelationKind) IsValid() bool {
	_, ok := relationKinds[k]
	return ok
}

// Bidirectional reports whether reverse links are maintained for the kind.
func (k RelationKind) Bidirectional() bool {
	return relationKinds[k]
}

// ForwardLink is the link type from an entity to its related targets.
func (k RelationKind) ForwardLink() LinkType {
	return LinkType("rel." + string(k))
}

// ReverseLink is the link type from a target back to the entity.
func (k RelationKind) ReverseLink() LinkType {
	return LinkType("rel_rev." + string(k))
}

// Target is one member of a relationship link set.
// Label is stored as the link tag, e.g. the display name of a tag.
type Target struct {
	ID    Hash   `json:"id"`
	Label string `json:"label,omitempty"`
}

// HashTargets wraps plain hashes as targets.
func HashTargets(ids ...Hash) []Target {
	out := make([]Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, Target{ID: id})
	}
	return out
}

// TagTargets converts tag names to targets anchored on their tag paths.
// Empty tags are dropped.
func TagTargets(tags ...string) []Target {
	out := make([]Target, 0, len(tags))
	for _, tag := range tags {
		n := NormalizeTag(tag)
		if n == "" {
			continue
		}
		out = append(out, Target{ID: TagPath(n).Hash(), Label: n})
	}
	return out
}

// Relationships maps each supplied relationship kind to its full target set.
// A present key with an empty slice clears the set; an absent key leaves it untouched.
type Relationships map[RelationKind][]Target

// Kinds returns the supplied kinds in a stable order.
func (r Relationships) Kinds() []RelationKind {
	out := make([]RelationKind, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DedupTargets removes repeated target IDs, keeping the first occurrence.
func DedupTargets(targets []Target) []Target {
	seen := make(map[Hash]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.ID.IsZero() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
