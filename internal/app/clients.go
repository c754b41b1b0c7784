package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/data/db"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/neo4jdb"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/openai"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/redisdb"
)

type Clients struct {
	Neo4j *neo4jdb.Client
	// Redis is nil when no address is configured or it was unreachable at
	// startup; the cache then falls back.
	Redis *redisdb.Client
	// LLM is nil without an API key; extraction then uses rules only.
	LLM    openai.Client
	Ledger *db.LedgerService
}

func wireClients(log *logger.Logger, cfg Config, opts Options) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rc, err := redisdb.New(log, cfg.Redis)
		switch {
		case err == nil:
			out.Redis = rc
		case opts.CacheOnly:
			return Clients{}, fmt.Errorf("init redis: %w", err)
		default:
			log.Warn("redis unreachable, serving without a shared cache", "addr", cfg.Redis.Addr, "error", err)
		}
	}
	if opts.CacheOnly {
		return out, nil
	}

	// Neo4j
	graphClient, err := neo4jdb.New(log, cfg.Neo4j)
	if err != nil {
		out.close(context.Background())
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	out.Neo4j = graphClient

	// LLM
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		llm, err := openai.NewClient(log, cfg.LLM)
		if err != nil {
			out.close(context.Background())
			return Clients{}, fmt.Errorf("init llm client: %w", err)
		}
		out.LLM = llm
	} else {
		log.Info("no LLM api key, model extraction disabled")
	}

	// Ledger
	if dsn := strings.TrimSpace(cfg.Ledger.DSN); dsn != "" {
		ledger, err := db.NewLedgerService(log, dsn)
		if err != nil {
			out.close(context.Background())
			return Clients{}, fmt.Errorf("init ledger: %w", err)
		}
		if err := db.AutoMigrateAll(ledger.DB()); err != nil {
			_ = ledger.Close()
			out.close(context.Background())
			return Clients{}, fmt.Errorf("ledger automigrate: %w", err)
		}
		out.Ledger = ledger
	}
	return out, nil
}

func (c Clients) close(ctx context.Context) error {
	var errs []error
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("neo4j: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}
	return errors.Join(errs...)
}
