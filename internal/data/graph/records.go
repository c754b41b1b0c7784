package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

func stringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func int64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch n := val.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func stringsFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	return toStrings(val)
}

func toStrings(val any) []string {
	list, ok := val.([]any)
	if !ok {
		if ss, ok := val.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func entityFromRecord(record *neo4j.Record) knowledge.Entity {
	return knowledge.Entity{
		Key:  stringFromRecord(record, "key"),
		Name: stringFromRecord(record, "name"),
		Type: stringFromRecord(record, "type"),
	}
}

func entityFromMap(m map[string]any) knowledge.Entity {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return knowledge.Entity{Key: str("key"), Name: str("name"), Type: str("type")}
}
