package repos

import (
	"gorm.io/gorm"

	"github.com/hedaiyu-site/Graduation-project/internal/data/repos/ingest"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type IngestRecordRepo = ingest.IngestRecordRepo

func NewIngestRecordRepo(db *gorm.DB, baseLog *logger.Logger) IngestRecordRepo {
	return ingest.NewIngestRecordRepo(db, baseLog)
}
