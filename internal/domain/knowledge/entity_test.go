package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyFoldsVariants(t *testing.T) {
	variants := []string{"Graph Database", "graph database", "  GRAPH   database ", "Ｇｒａｐｈ Database"}
	want := CanonicalKey(variants[0])
	require.NotEmpty(t, want)
	for _, v := range variants[1:] {
		assert.Equal(t, want, CanonicalKey(v), "variant %q", v)
	}
	assert.Equal(t, "", CanonicalKey(" \t\n"))
}

func TestNewEntityKeepsDisplayForm(t *testing.T) {
	e, ok := NewEntity("  Neo4j   Graph ", "")
	require.True(t, ok)
	assert.Equal(t, "Neo4j Graph", e.Name)
	assert.Equal(t, EntityTypeConcept, e.Type)

	_, ok = NewEntity("   ", EntityTypePerson)
	assert.False(t, ok)
}

func TestMergeType(t *testing.T) {
	assert.Equal(t, EntityTypePerson, MergeType(EntityTypeConcept, EntityTypePerson))
	assert.Equal(t, EntityTypePerson, MergeType(EntityTypePerson, EntityTypeOrganization))
	assert.Equal(t, EntityTypePerson, MergeType(EntityTypePerson, EntityTypeConcept))
	assert.Equal(t, EntityTypeConcept, MergeType("", EntityTypeConcept))
}

func TestDedupeEntitiesFirstDisplayWins(t *testing.T) {
	a, _ := NewEntity("Redis", "")
	b, _ := NewEntity("REDIS", EntityTypeProduct)
	c, _ := NewEntity("Neo4j", "")
	out := DedupeEntities([]Entity{a, b, c})
	require.Len(t, out, 2)
	assert.Equal(t, "Redis", out[0].Name)
	assert.Equal(t, EntityTypeProduct, out[0].Type)
	assert.Equal(t, "Neo4j", out[1].Name)
}

func TestNewTripleRejectsSelfLoops(t *testing.T) {
	a, _ := NewEntity("A", "")
	a2, _ := NewEntity("a", "")
	b, _ := NewEntity("B", "")
	_, ok := NewTriple(a, "is", a2, "doc", StrategyCooccurrence)
	assert.False(t, ok)
	_, ok = NewTriple(a, " ", b, "doc", StrategyCooccurrence)
	assert.False(t, ok)
	tr, ok := NewTriple(a, "is", b, "doc", StrategyCooccurrence)
	require.True(t, ok)
	assert.Equal(t, TripleKey{Source: "a", Label: "is", Target: "b"}, tr.Key())
}
