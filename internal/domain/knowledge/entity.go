package knowledge

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	EntityTypeConcept      = "Concept"
	EntityTypePerson       = "Person"
	EntityTypeOrganization = "Organization"
	EntityTypeLocation     = "Location"
	EntityTypeProduct      = "Product"
	EntityTypeEvent        = "Event"
	EntityTypeArtwork      = "Artwork"
	EntityTypeDate         = "Date"
)

// Entity is a node candidate. Key is the canonical identity; Name keeps the
// first display form seen.
type Entity struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CanonicalKey folds a surface form into its identity: NFKC, trimmed,
// internal whitespace collapsed, then case-folded.
func CanonicalKey(s string) string {
	s = DisplayName(norm.NFKC.String(s))
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

// DisplayName trims and collapses whitespace without touching case.
func DisplayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewEntity returns false when the surface form has no identity.
func NewEntity(surface, typ string) (Entity, bool) {
	key := CanonicalKey(surface)
	if key == "" {
		return Entity{}, false
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		typ = EntityTypeConcept
	}
	return Entity{Key: key, Name: DisplayName(surface), Type: typ}, true
}

// MergeType resolves the type of an entity seen twice. Concept is the weakest
// type and gives way to anything more specific; otherwise the first type wins.
func MergeType(current, incoming string) string {
	if current == "" || (current == EntityTypeConcept && incoming != "") {
		return incoming
	}
	return current
}

// DedupeEntities keeps the first sighting of each key, in order.
func DedupeEntities(in []Entity) []Entity {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]int, len(in))
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		if e.Key == "" {
			continue
		}
		if idx, ok := seen[e.Key]; ok {
			out[idx].Type = MergeType(out[idx].Type, e.Type)
			continue
		}
		seen[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}
