package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

// MaxPathHops is the largest hop bound PathBetween accepts.
const MaxPathHops = 6

func (s *Store) read(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	if s.client == nil || s.client.Driver == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work, neo4j.WithTxTimeout(s.opts.Timeout))
}

// FindEntity returns nil when no entity has key.
func (s *Store) FindEntity(ctx context.Context, key string) (*knowledge.Entity, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {key: $key})
RETURN e.key AS key, e.name AS name, e.type AS type
LIMIT 1
`, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return (*knowledge.Entity)(nil), res.Err()
		}
		e := entityFromRecord(res.Record())
		return &e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("find entity: %w", err)
	}
	return out.(*knowledge.Entity), nil
}

func (s *Store) RelatedEntities(ctx context.Context, key string, limit int) ([]knowledge.RelatedEntity, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity {key: $key})-[r:RELATES_TO]-(o:Entity)
RETURN o.key AS key, o.name AS name, o.type AS type, r.type AS relation,
       CASE WHEN startNode(r) = e THEN 'out' ELSE 'in' END AS direction,
       r.strategies AS strategies
ORDER BY relation, name
LIMIT $limit
`, map[string]any{"key": key, "limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		related := make([]knowledge.RelatedEntity, 0, len(records))
		for _, rec := range records {
			related = append(related, knowledge.RelatedEntity{
				Entity:     entityFromRecord(rec),
				Relation:   stringFromRecord(rec, "relation"),
				Direction:  stringFromRecord(rec, "direction"),
				Strategies: stringsFromRecord(rec, "strategies"),
			})
		}
		return related, nil
	})
	if err != nil {
		return nil, fmt.Errorf("related entities: %w", err)
	}
	return out.([]knowledge.RelatedEntity), nil
}

func (s *Store) DocumentsMentioning(ctx context.Context, key string, limit int) ([]knowledge.DocumentRef, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (d:Document)-[:CONTAINS_ENTITY]->(:Entity {key: $key})
RETURN d.id AS id, d.title AS title, d.file_name AS file_name
ORDER BY title, id
LIMIT $limit
`, map[string]any{"key": key, "limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]knowledge.DocumentRef, 0, len(records))
		for _, rec := range records {
			docs = append(docs, knowledge.DocumentRef{
				ID:       stringFromRecord(rec, "id"),
				Title:    stringFromRecord(rec, "title"),
				FileName: stringFromRecord(rec, "file_name"),
			})
		}
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("documents mentioning: %w", err)
	}
	return out.([]knowledge.DocumentRef), nil
}

// ShortestPath ignores edge direction. It returns found=false when either
// endpoint is missing or no path fits in maxHops.
func (s *Store) ShortestPath(ctx context.Context, fromKey, toKey string, maxHops int) (nodes []knowledge.Entity, relations []string, found bool, err error) {
	if maxHops < 1 || maxHops > MaxPathHops {
		return nil, nil, false, fmt.Errorf("max hops %d out of range 1..%d", maxHops, MaxPathHops)
	}
	// Variable length bounds cannot be parameters; maxHops is range checked above.
	query := fmt.Sprintf(`
MATCH (a:Entity {key: $from}), (b:Entity {key: $to})
MATCH p = shortestPath((a)-[:RELATES_TO*1..%d]-(b))
RETURN [n IN nodes(p) | {key: n.key, name: n.name, type: n.type}] AS nodes,
       [r IN relationships(p) | r.type] AS relations
`, maxHops)

	type pathRow struct {
		nodes     []knowledge.Entity
		relations []string
		found     bool
	}
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"from": fromKey, "to": toKey})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return pathRow{}, res.Err()
		}
		rec := res.Record()
		row := pathRow{found: true, relations: stringsFromRecord(rec, "relations")}
		if raw, ok := rec.Get("nodes"); ok {
			if list, ok := raw.([]any); ok {
				for _, item := range list {
					if m, ok := item.(map[string]any); ok {
						row.nodes = append(row.nodes, entityFromMap(m))
					}
				}
			}
		}
		return row, nil
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("shortest path: %w", err)
	}
	row := out.(pathRow)
	return row.nodes, row.relations, row.found, nil
}

// CentralEntities ranks entities by total degree over every relationship type.
func (s *Store) CentralEntities(ctx context.Context, limit int) ([]knowledge.CentralEntity, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity)-[r]-()
WITH e, count(r) AS degree
RETURN e.key AS key, e.name AS name, e.type AS type, degree
ORDER BY degree DESC, name
LIMIT $limit
`, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		central := make([]knowledge.CentralEntity, 0, len(records))
		for _, rec := range records {
			central = append(central, knowledge.CentralEntity{
				Entity: entityFromRecord(rec),
				Degree: int64FromRecord(rec, "degree"),
			})
		}
		return central, nil
	})
	if err != nil {
		return nil, fmt.Errorf("central entities: %w", err)
	}
	return out.([]knowledge.CentralEntity), nil
}

func (s *Store) Stats(ctx context.Context) (*knowledge.GraphStats, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &knowledge.GraphStats{}
		counts := []struct {
			query string
			dst   *int64
		}{
			{`MATCH (d:Document) RETURN count(d) AS n`, &stats.Documents},
			{`MATCH (e:Entity) RETURN count(e) AS n`, &stats.Entities},
			{`MATCH ()-[r:RELATES_TO]->() RETURN count(r) AS n`, &stats.Relations},
			{`MATCH ()-[c:CONTAINS_ENTITY]->() RETURN count(c) AS n`, &stats.Memberships},
		}
		for _, c := range counts {
			res, err := tx.Run(ctx, c.query, nil)
			if err != nil {
				return nil, err
			}
			rec, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			*c.dst = int64FromRecord(rec, "n")
		}

		var err error
		if stats.EntityTypes, err = labelCounts(ctx, tx, `
MATCH (e:Entity)
RETURN e.type AS label, count(*) AS n
ORDER BY n DESC, label
`); err != nil {
			return nil, err
		}
		if stats.RelationTypes, err = labelCounts(ctx, tx, `
MATCH ()-[r:RELATES_TO]->()
RETURN r.type AS label, count(*) AS n
ORDER BY n DESC, label
LIMIT 20
`); err != nil {
			return nil, err
		}
		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	return out.(*knowledge.GraphStats), nil
}

func labelCounts(ctx context.Context, tx neo4j.ManagedTransaction, query string) ([]knowledge.LabelCount, error) {
	res, err := tx.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]knowledge.LabelCount, 0, len(records))
	for _, rec := range records {
		out = append(out, knowledge.LabelCount{
			Label: stringFromRecord(rec, "label"),
			Count: int64FromRecord(rec, "n"),
		})
	}
	return out, nil
}
