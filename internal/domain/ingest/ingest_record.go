package ingest

import "time"

// IngestRecord is the ledger row for the last successful ingest of a document.
type IngestRecord struct {
	DocumentID  string `gorm:"column:document_id;type:text;primaryKey" json:"document_id"`
	ContentHash string `gorm:"column:content_hash;type:text;not null;index" json:"content_hash"`
	RunID       string `gorm:"column:run_id;type:text;not null;index" json:"run_id"`
	Strategy    string `gorm:"column:strategy;type:text;not null;default:''" json:"strategy"`
	Entities    int    `gorm:"column:entities;not null;default:0" json:"entities"`
	Relations   int    `gorm:"column:relations;not null;default:0" json:"relations"`

	IngestedAt time.Time `gorm:"column:ingested_at;not null;index" json:"ingested_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IngestRecord) TableName() string { return "kg_ingest_record" }
