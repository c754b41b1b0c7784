package domain

import (
	"github.com/hedaiyu-site/Graduation-project/internal/domain/ingest"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

type IngestRecord = ingest.IngestRecord

type Document = knowledge.Document
type DocumentInput = knowledge.DocumentInput
type FrontMatter = knowledge.FrontMatter
type Entity = knowledge.Entity
type Triple = knowledge.Triple
type Batch = knowledge.Batch
type BatchSummary = knowledge.BatchSummary
type DocumentResult = knowledge.DocumentResult
type WriteSummary = knowledge.WriteSummary

// AutoMigrateModels lists every gorm model owned by this service.
func AutoMigrateModels() []any {
	return []any{
		&IngestRecord{},
	}
}
