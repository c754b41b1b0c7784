package app

import (
	"context"
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/data/db"
	httpH "github.com/hedaiyu-site/Graduation-project/internal/http/handlers"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/neo4jdb"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/redisdb"
)

type Handlers struct {
	Query  *httpH.QueryHandler
	Ingest *httpH.IngestHandler
	Cache  *httpH.CacheHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Query:  httpH.NewQueryHandler(services.Query, log),
		Ingest: httpH.NewIngestHandler(services.Ingest, log),
		Cache:  httpH.NewCacheHandler(services.Cache, log),
		Health: httpH.NewHealthHandler(healthChecks(cfg, clients, services), cfg.HTTP.HealthTimeout),
	}
}

func healthChecks(cfg Config, clients Clients, services Services) map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{}
	if clients.Neo4j != nil {
		checks["neo4j"] = clients.Neo4j
	}
	// Without a Redis address the cache reads through and has nothing to ping.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		checks["cache"] = services.Cache
	}
	if clients.Ledger != nil {
		checks["ledger"] = clients.Ledger
	}
	return checks
}

// CheckDependencies opens a fresh connection to every configured dependency
// and reports whether each answers. It does not need a running App, so an unreachable
// graph is reported rather than fatal.
func CheckDependencies(ctx context.Context, log *logger.Logger, cfg Config) (bool, map[string]httpH.CheckResult) {
	checks := map[string]httpH.Pinger{
		"neo4j": httpH.PingFunc(func(ctx context.Context) error {
			c, err := neo4jdb.New(log, cfg.Neo4j)
			if err != nil {
				return err
			}
			defer c.Close(context.Background())
			return c.Ping(ctx)
		}),
	}
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error {
			c, err := redisdb.New(log, cfg.Redis)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Ping(ctx)
		})
	}
	if dsn := strings.TrimSpace(cfg.Ledger.DSN); dsn != "" {
		checks["ledger"] = httpH.PingFunc(func(ctx context.Context) error {
			l, err := db.NewLedgerService(log, dsn)
			if err != nil {
				return err
			}
			defer l.Close()
			return l.Ping(ctx)
		})
	}
	timeout := cfg.HTTP.HealthTimeout
	if cfg.Neo4j.Timeout > timeout {
		timeout = cfg.Neo4j.Timeout
	}
	return httpH.NewHealthHandler(checks, timeout).Check(ctx)
}
