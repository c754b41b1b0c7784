package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

const DefaultNamespace = "kg"

// Keys builds cache keys. Entity identities are query-escaped so glob
// metacharacters and the ':' separator never appear inside a segment.
type Keys struct {
	Namespace string
}

func NewKeys(namespace string) Keys {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keys{Namespace: namespace}
}

func (k Keys) ns() string {
	if k.Namespace == "" {
		return DefaultNamespace
	}
	return k.Namespace
}

func (k Keys) join(parts ...string) string {
	return k.ns() + ":" + strings.Join(parts, ":")
}

func seg(s string) string { return url.QueryEscape(s) }

func (k Keys) Related(entityKey string, limit int) string {
	return k.join("entity", seg(entityKey), "related", strconv.Itoa(limit))
}

func (k Keys) Documents(entityKey string, limit int) string {
	return k.join("entity", seg(entityKey), "documents", strconv.Itoa(limit))
}

func (k Keys) Path(fromKey, toKey string, maxHops int) string {
	return k.join("path", seg(fromKey), seg(toKey), strconv.Itoa(maxHops))
}

func (k Keys) Central(limit int) string {
	return k.join("central", strconv.Itoa(limit))
}

func (k Keys) Stats() string { return k.join("stats") }

// EntityPattern matches every cached result anchored on one entity.
func (k Keys) EntityPattern(entityKey string) string {
	return k.join("entity", seg(entityKey), "*")
}

// DocumentsPattern and RelatedPattern match one result kind across every
// entity.
func (k Keys) DocumentsPattern() string { return k.join("entity", "*", "documents", "*") }
func (k Keys) RelatedPattern() string   { return k.join("entity", "*", "related", "*") }

func (k Keys) PathPattern() string    { return k.join("path", "*") }
func (k Keys) CentralPattern() string { return k.join("central", "*") }

// All matches the whole namespace.
func (k Keys) All() string { return k.ns() + ":*" }

// AffectedBy lists what a flush of b makes stale. A written document may
// carry a new title, so every documents listing goes. A merged entity may
// carry a new type, so every related listing goes, since the entity can
// appear in any neighbour's list. Path, central and stats results go whenever
// anything was written.
func (k Keys) AffectedBy(b *knowledge.Batch) (keys []string, patterns []string) {
	if b.Empty() {
		return nil, nil
	}
	patterns = append(patterns, k.DocumentsPattern())
	if len(b.Entities()) > 0 {
		patterns = append(patterns, k.RelatedPattern())
	}
	patterns = append(patterns, k.PathPattern(), k.CentralPattern())
	keys = append(keys, k.Stats())
	return keys, patterns
}
