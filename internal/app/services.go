package app

import (
	"strings"

	"github.com/hedaiyu-site/Graduation-project/internal/data/cache"
	"github.com/hedaiyu-site/Graduation-project/internal/data/graph"
	"github.com/hedaiyu-site/Graduation-project/internal/data/repos"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/entities"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/pipeline"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/query"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Services struct {
	Cache  *cache.Cache
	Graph  *graph.Store
	Ingest *pipeline.Service
	Query  *query.Service
}

func wireCache(log *logger.Logger, cfg Config, clients Clients) *cache.Cache {
	var kv cache.KV
	switch {
	case clients.Redis != nil:
		kv = cache.NewRedisKV(clients.Redis.RDB, clients.Redis.Timeout)
	case strings.TrimSpace(cfg.Redis.Addr) == "":
		// A per-process store would miss invalidations made by other
		// processes, so queries read through instead.
		log.Info("no redis address, query caching disabled")
	default:
		// Configured but unreachable: read through to the graph.
	}
	return cache.New(kv, log, cache.Options{
		Namespace:  cfg.Cache.Namespace,
		DefaultTTL: cfg.Cache.TTL,
	})
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, opts Options) Services {
	log.Info("Wiring services...")
	c := wireCache(log, cfg, clients)
	if opts.CacheOnly {
		return Services{Cache: c}
	}

	store := graph.NewStore(clients.Neo4j, log, graph.StoreOptions{
		ChunkSize:    cfg.Ingest.ChunkSize,
		PreviewRunes: cfg.Ingest.PreviewChars,
		Timeout:      cfg.Ingest.WriteTimeout,
	})

	strategies := []entities.Strategy{}
	if clients.LLM != nil {
		strategies = append(strategies, entities.NewModelStrategy(clients.LLM, log))
	}
	strategies = append(strategies, entities.NewRuleStrategy())

	deps := pipeline.Deps{
		Graph:    store,
		Entities: entities.NewChain(log, strategies...),
		Cache:    c,
		Log:      log,
	}
	if clients.Ledger != nil {
		deps.Ledger = repos.NewIngestRecordRepo(clients.Ledger.DB(), log)
	}

	return Services{
		Cache: c,
		Graph: store,
		Ingest: pipeline.New(deps, pipeline.Options{
			Concurrency: cfg.Ingest.Concurrency,
			FlushSize:   cfg.Ingest.FlushSize,
		}),
		Query: query.NewService(store, c, log, query.Options{
			TTL:     cfg.Cache.TTL,
			PathTTL: cfg.Cache.PathTTL,
		}),
	}
}
