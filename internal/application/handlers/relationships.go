package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

// RelationshipInput names related hashes per relationship kind, in text form.
// Tags are plain names; creator entries may be identities or agent hashes;
// every other kind takes hex hashes. A kind that is absent is left untouched
// on update, while an empty list clears it.
type RelationshipInput map[string][]string

// ValidRelationKinds lists the accepted relationship kind names.
func ValidRelationKinds() []string {
	kinds := entities.RelationKinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// parseRelationships converts text input into relationship targets.
func parseRelationships(in RelationshipInput) (entities.Relationships, error) {
	if in == nil {
		return nil, nil
	}

	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(entities.Relationships, len(in))
	for _, name := range names {
		kind := entities.RelationKind(strings.ToLower(strings.TrimSpace(name)))
		if !kind.IsValid() {
			return nil, fmt.Errorf("invalid relationship kind: %s (valid: %s)", name, strings.Join(ValidRelationKinds(), ", "))
		}

		values := in[name]
		targets := make([]entities.Target, 0, len(values))
		if kind == entities.RelationTags {
			targets = append(targets, entities.TagTargets(values...)...)
			out[kind] = targets
			continue
		}
		for _, v := range values {
			h, err := parseTarget(kind, v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", kind, err)
			}
			targets = append(targets, entities.Target{ID: h})
		}
		out[kind] = targets
	}
	return out, nil
}

func parseTarget(kind entities.RelationKind, v string) (entities.Hash, error) {
	v = strings.TrimSpace(v)
	if kind == entities.RelationCreator {
		return entities.ParseAgent(v)
	}
	return entities.ParseHash(v)
}
