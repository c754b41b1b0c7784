package knowledge

// Membership is one CONTAINS_ENTITY edge.
type Membership struct {
	DocumentID string `json:"document_id"`
	EntityKey  string `json:"entity_key"`
}

// Relation is a merged RELATES_TO edge with its accumulated provenance.
type Relation struct {
	SourceKey  string   `json:"source_key"`
	Label      string   `json:"label"`
	TargetKey  string   `json:"target_key"`
	Strategies []string `json:"strategies"`
	Documents  []string `json:"documents"`
}

// Batch accumulates processed documents between flushes. It is owned by a
// single ingest run and handed to the graph writer explicitly.
type Batch struct {
	docs     []*Document
	docIndex map[string]int

	entities    []Entity
	entityIndex map[string]int

	memberships    []Membership
	membershipSeen map[Membership]struct{}

	relations     []Relation
	relationIndex map[TripleKey]int
}

func NewBatch() *Batch {
	return &Batch{
		docIndex:       map[string]int{},
		entityIndex:    map[string]int{},
		membershipSeen: map[Membership]struct{}{},
		relationIndex:  map[TripleKey]int{},
	}
}

// Add merges one processed document. A document ID seen twice keeps the last
// attributes; entities, memberships and relations only ever grow.
func (b *Batch) Add(pd ProcessedDocument) {
	if b == nil || pd.Document == nil || pd.Document.ID == "" {
		return
	}
	doc := pd.Document
	if idx, ok := b.docIndex[doc.ID]; ok {
		b.docs[idx] = doc
	} else {
		b.docIndex[doc.ID] = len(b.docs)
		b.docs = append(b.docs, doc)
	}

	for _, e := range pd.Entities {
		b.addEntity(doc.ID, e)
	}
	for _, t := range pd.Triples {
		b.addEntity(doc.ID, t.Source)
		b.addEntity(doc.ID, t.Target)
		b.addRelation(doc.ID, t)
	}
}

func (b *Batch) addEntity(docID string, e Entity) {
	if e.Key == "" {
		return
	}
	if idx, ok := b.entityIndex[e.Key]; ok {
		b.entities[idx].Type = MergeType(b.entities[idx].Type, e.Type)
	} else {
		if e.Type == "" {
			e.Type = EntityTypeConcept
		}
		b.entityIndex[e.Key] = len(b.entities)
		b.entities = append(b.entities, e)
	}
	m := Membership{DocumentID: docID, EntityKey: e.Key}
	if _, ok := b.membershipSeen[m]; ok {
		return
	}
	b.membershipSeen[m] = struct{}{}
	b.memberships = append(b.memberships, m)
}

func (b *Batch) addRelation(docID string, t Triple) {
	k := t.Key()
	idx, ok := b.relationIndex[k]
	if !ok {
		idx = len(b.relations)
		b.relationIndex[k] = idx
		b.relations = append(b.relations, Relation{SourceKey: k.Source, Label: k.Label, TargetKey: k.Target})
	}
	r := &b.relations[idx]
	r.Strategies = appendUnique(r.Strategies, t.Strategy)
	r.Documents = appendUnique(r.Documents, docID)
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func (b *Batch) Documents() []*Document    { return b.docs }
func (b *Batch) Entities() []Entity        { return b.entities }
func (b *Batch) Memberships() []Membership { return b.memberships }
func (b *Batch) Relations() []Relation     { return b.relations }
func (b *Batch) Len() int                  { return len(b.docs) }
func (b *Batch) Empty() bool               { return b == nil || len(b.docs) == 0 }

// EntityKeys lists every entity key the batch touches.
func (b *Batch) EntityKeys() []string {
	out := make([]string, 0, len(b.entities))
	for _, e := range b.entities {
		out = append(out, e.Key)
	}
	return out
}
