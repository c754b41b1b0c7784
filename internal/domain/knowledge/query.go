package knowledge

// RelatedEntity is a neighbour reached over one RELATES_TO edge.
type RelatedEntity struct {
	Entity     Entity   `json:"entity"`
	Relation   string   `json:"relation"`
	Direction  string   `json:"direction"`
	Strategies []string `json:"strategies,omitempty"`
}

type RelatedResult struct {
	Query   string          `json:"query"`
	Found   bool            `json:"found"`
	Entity  *Entity         `json:"entity,omitempty"`
	Related []RelatedEntity `json:"related"`
}

type DocumentRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
}

type DocumentsResult struct {
	Query     string        `json:"query"`
	Found     bool          `json:"found"`
	Entity    *Entity       `json:"entity,omitempty"`
	Documents []DocumentRef `json:"documents"`
}

// PathResult is the shortest RELATES_TO path between two entities, ignoring
// edge direction. Relations[i] joins Nodes[i] and Nodes[i+1].
type PathResult struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	MaxHops   int      `json:"max_hops"`
	Found     bool     `json:"found"`
	Hops      int      `json:"hops"`
	Nodes     []Entity `json:"nodes"`
	Relations []string `json:"relations"`
}

type CentralEntity struct {
	Entity Entity `json:"entity"`
	Degree int64  `json:"degree"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type GraphStats struct {
	Documents     int64        `json:"documents"`
	Entities      int64        `json:"entities"`
	Relations     int64        `json:"relations"`
	Memberships   int64        `json:"memberships"`
	EntityTypes   []LabelCount `json:"entity_types"`
	RelationTypes []LabelCount `json:"relation_types"`
}
