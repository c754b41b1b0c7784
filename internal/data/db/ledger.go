package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// LedgerService owns the gorm handle for the ingest ledger.
type LedgerService struct {
	db      *gorm.DB
	dialect string
	log     *logger.Logger
}

// Dialect picks the driver from a DSN: postgres URLs and key=value DSNs go to
// Postgres, everything else is a SQLite path (optionally prefixed sqlite://).
func Dialect(dsn string) (string, string) {
	d := strings.TrimSpace(dsn)
	lower := strings.ToLower(d)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, d
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return DialectPostgres, d
	case strings.HasPrefix(lower, "sqlite://"):
		return DialectSQLite, d[len("sqlite://"):]
	}
	return DialectSQLite, d
}

func NewLedgerService(logg *logger.Logger, dsn string) (*LedgerService, error) {
	if logg == nil {
		return nil, fmt.Errorf("ledger: logger required")
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("ledger: missing dsn")
	}
	serviceLog := logg.With("service", "LedgerService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialect, target := Dialect(dsn)
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = postgres.Open(target)
	default:
		dialector = sqlite.Open(target)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger (%s): %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps SQLite writers from tripping over each other.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	serviceLog.Info("ledger opened", "dialect", dialect)
	return &LedgerService{db: db, dialect: dialect, log: serviceLog}, nil
}

func (s *LedgerService) DB() *gorm.DB    { return s.db }
func (s *LedgerService) Dialect() string { return s.dialect }

func (s *LedgerService) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *LedgerService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
