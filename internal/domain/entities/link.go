package entities

import (
	"slices"
	"strings"
	"time"
)

// LinkType classifies a link.
type LinkType string

const (
	LinkUpdate     LinkType = "update"
	LinkTombstone  LinkType = "tombstone"
	LinkPathMember LinkType = "path_member"
)

// Link connects a base hash to a target hash.
type Link struct {
	ID        Hash      `json:"id"`
	Base      Hash      `json:"base"`
	Target    Hash      `json:"target"`
	Type      LinkType  `json:"type"`
	Tag       string    `json:"tag,omitempty"`
	Author    Hash      `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLink builds a link with its deterministic ID.
func NewLink(base, target Hash, typ LinkType, tag string, author Hash, ts time.Time) Link {
	return Link{
		ID:        LinkID(base, target, typ, tag),
		Base:      base,
		Target:    target,
		Type:      typ,
		Tag:       tag,
		Author:    author,
		Timestamp: ts.UTC(),
	}
}

// LinkID computes the identifier of a link from its addressing fields.
// Author and timestamp are excluded so that repeated creation is idempotent.
func LinkID(base, target Hash, typ LinkType, tag string) Hash {
	return NewHash(HashLink, base.Bytes(), target.Bytes(), []byte(typ), []byte(tag))
}

// LinkFilter narrows a GetLinks call. Empty fields match everything.
type LinkFilter struct {
	Types     []LinkType
	TagPrefix string
}

// FilterTypes is shorthand for a filter on link types.
func FilterTypes(types ...LinkType) LinkFilter {
	return LinkFilter{Types: types}
}

// Matches reports whether l passes the filter.
func (f LinkFilter) Matches(l Link) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, l.Type) {
		return false
	}
	return strings.HasPrefix(l.Tag, f.TagPrefix)
}

// SortLinks orders links by timestamp then by raw ID bytes.
func SortLinks(links []Link) {
	slices.SortFunc(links, func(a, b Link) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}
