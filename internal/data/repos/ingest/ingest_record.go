package ingest

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hedaiyu-site/Graduation-project/internal/domain"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/dbctx"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type IngestRecordRepo interface {
	GetByDocumentIDs(dbc dbctx.Context, ids []string) ([]*domain.IngestRecord, error)
	// HashesByDocumentIDs maps document id to the content hash last ingested.
	HashesByDocumentIDs(dbc dbctx.Context, ids []string) (map[string]string, error)
	Upsert(dbc dbctx.Context, rows []*domain.IngestRecord) error
	DeleteByDocumentIDs(dbc dbctx.Context, ids []string) error
	ListSince(dbc dbctx.Context, since time.Time, limit int) ([]*domain.IngestRecord, error)
}

type ingestRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestRecordRepo(db *gorm.DB, baseLog *logger.Logger) IngestRecordRepo {
	return &ingestRecordRepo{
		db:  db,
		log: baseLog.With("repo", "IngestRecordRepo"),
	}
}

// sqlite caps bound variables per statement; keep IN lists below it.
const inChunk = 500

func (r *ingestRecordRepo) GetByDocumentIDs(dbc dbctx.Context, ids []string) ([]*domain.IngestRecord, error) {
	transaction := dbc.DB(r.db)
	out := []*domain.IngestRecord{}
	for start := 0; start < len(ids); start += inChunk {
		end := min(start+inChunk, len(ids))
		var part []*domain.IngestRecord
		if err := transaction.
			Where("document_id IN ?", ids[start:end]).
			Find(&part).Error; err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func (r *ingestRecordRepo) HashesByDocumentIDs(dbc dbctx.Context, ids []string) (map[string]string, error) {
	rows, err := r.GetByDocumentIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if row != nil {
			out[row.DocumentID] = row.ContentHash
		}
	}
	return out, nil
}

func (r *ingestRecordRepo) Upsert(dbc dbctx.Context, rows []*domain.IngestRecord) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row != nil && row.IngestedAt.IsZero() {
			row.IngestedAt = now
		}
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"content_hash",
				"run_id",
				"strategy",
				"entities",
				"relations",
				"ingested_at",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *ingestRecordRepo) DeleteByDocumentIDs(dbc dbctx.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("document_id IN ?", ids).
		Delete(&domain.IngestRecord{}).Error
}

func (r *ingestRecordRepo) ListSince(dbc dbctx.Context, since time.Time, limit int) ([]*domain.IngestRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.IngestRecord
	q := dbc.DB(r.db).Order("ingested_at DESC").Limit(limit)
	if !since.IsZero() {
		q = q.Where("ingested_at >= ?", since)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
