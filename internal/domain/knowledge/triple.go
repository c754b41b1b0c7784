package knowledge

import "strings"

const (
	StrategyCooccurrence = "cooccurrence"
	StrategyHierarchical = "hierarchical"
	StrategyTemporal     = "temporal"
)

const (
	RelationIncludes    = "INCLUDES"
	RelationBelongsTo   = "BELONGS_TO"
	RelationDividedInto = "DIVIDED_INTO"
	RelationOccurAt     = "OCCUR_AT"
)

// Triple is one extracted relationship with its provenance.
type Triple struct {
	Source     Entity `json:"source"`
	Label      string `json:"label"`
	Target     Entity `json:"target"`
	DocumentID string `json:"document_id"`
	Strategy   string `json:"strategy"`
}

type TripleKey struct {
	Source string
	Label  string
	Target string
}

func (t Triple) Key() TripleKey {
	return TripleKey{Source: t.Source.Key, Label: t.Label, Target: t.Target.Key}
}

// NewTriple rejects empty endpoints, empty labels and self loops.
func NewTriple(source Entity, label string, target Entity, docID, strategy string) (Triple, bool) {
	label = strings.TrimSpace(label)
	if source.Key == "" || target.Key == "" || label == "" || source.Key == target.Key {
		return Triple{}, false
	}
	return Triple{
		Source:     source,
		Label:      label,
		Target:     target,
		DocumentID: docID,
		Strategy:   strategy,
	}, true
}

// DedupeTriples keeps the first triple per (source, label, target).
func DedupeTriples(in []Triple) []Triple {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[TripleKey]struct{}, len(in))
	out := make([]Triple, 0, len(in))
	for _, t := range in {
		k := t.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
