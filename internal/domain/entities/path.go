package entities

import (
	"regexp"
	"strings"
)

// Path is a dotted, hierarchical bucket name whose hash anchors membership links.
type Path string

// AdministratorsPath lists the network administrators.
const AdministratorsPath Path = "network.administrators"

var reTagSeparators = regexp.MustCompile(`[\s_]+`)

// Hash returns the stable key of the path.
func (p Path) Hash() Hash {
	return NewHash(HashPath, []byte(p))
}

// Bucket returns the status bucket for a kind, e.g. "offers.active".
func Bucket(kind EntityKind, status ListingStatus) Path {
	return Path(kind.Plural() + "." + string(status))
}

// StatusBuckets returns every status bucket of a kind.
func StatusBuckets(kind EntityKind) []Path {
	return []Path{Bucket(kind, StatusActive), Bucket(kind, StatusArchived)}
}

// NormalizeTag lowercases a tag and collapses separators to single hyphens.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = reTagSeparators.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-")
}

// TagPath returns the path anchoring a tag.
func TagPath(tag string) Path {
	return Path("tags." + NormalizeTag(tag))
}
