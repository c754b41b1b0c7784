package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hedaiyu-site/Graduation-project/internal/data/cache"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

// GraphReader is the read side of the graph store.
type GraphReader interface {
	FindEntity(ctx context.Context, key string) (*knowledge.Entity, error)
	RelatedEntities(ctx context.Context, key string, limit int) ([]knowledge.RelatedEntity, error)
	DocumentsMentioning(ctx context.Context, key string, limit int) ([]knowledge.DocumentRef, error)
	ShortestPath(ctx context.Context, fromKey, toKey string, maxHops int) ([]knowledge.Entity, []string, bool, error)
	CentralEntities(ctx context.Context, limit int) ([]knowledge.CentralEntity, error)
	Stats(ctx context.Context) (*knowledge.GraphStats, error)
}

type Options struct {
	// TTL bounds entity, central and stats results.
	TTL time.Duration
	// PathTTL bounds path results.
	PathTTL time.Duration
}

// Service answers read queries through the cache.
type Service struct {
	graph GraphReader
	cache *cache.Cache
	opts  Options
	log   *logger.Logger
}

func NewService(graph GraphReader, c *cache.Cache, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.PathTTL <= 0 {
		opts.PathTTL = opts.TTL
	}
	return &Service{graph: graph, cache: c, opts: opts, log: log.With("service", "QueryService")}
}

func (s *Service) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "query."+op, attrs...)
	return ctx, func(err error) {
		observability.Current().ObserveQuery(op, time.Since(start))
		if err != nil && !knowledge.IsKind(err, knowledge.KindQuery) {
			s.log.Warn("query failed", "query", op, "error", err)
		}
		observability.EndSpan(span, err)
	}
}

// RelatedEntities lists the neighbours of the named entity. An unknown entity
// yields Found=false.
func (s *Service) RelatedEntities(ctx context.Context, name string, limit int) (res *knowledge.RelatedResult, err error) {
	limit = normalizeLimit(limit)
	if err := check("related_entities", entityParams{Name: name, Limit: limit}); err != nil {
		return nil, err
	}
	key := knowledge.CanonicalKey(name)
	ctx, done := s.observe(ctx, "related_entities", attribute.String("kg.entity", key))
	defer func() { done(err) }()

	out, err := cache.GetOrLoad(ctx, s.cache, s.cache.Keys().Related(key, limit), s.opts.TTL,
		func(ctx context.Context) (knowledge.RelatedResult, error) {
			r := knowledge.RelatedResult{Related: []knowledge.RelatedEntity{}}
			ent, err := s.graph.FindEntity(ctx, key)
			if err != nil || ent == nil {
				return r, err
			}
			related, err := s.graph.RelatedEntities(ctx, key, limit)
			if err != nil {
				return r, err
			}
			r.Found = true
			r.Entity = ent
			if related != nil {
				r.Related = related
			}
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	out.Query = name
	return &out, nil
}

// DocumentsMentioning lists the documents containing the named entity.
func (s *Service) DocumentsMentioning(ctx context.Context, name string, limit int) (res *knowledge.DocumentsResult, err error) {
	limit = normalizeLimit(limit)
	if err := check("documents_mentioning", entityParams{Name: name, Limit: limit}); err != nil {
		return nil, err
	}
	key := knowledge.CanonicalKey(name)
	ctx, done := s.observe(ctx, "documents_mentioning", attribute.String("kg.entity", key))
	defer func() { done(err) }()

	out, err := cache.GetOrLoad(ctx, s.cache, s.cache.Keys().Documents(key, limit), s.opts.TTL,
		func(ctx context.Context) (knowledge.DocumentsResult, error) {
			r := knowledge.DocumentsResult{Documents: []knowledge.DocumentRef{}}
			ent, err := s.graph.FindEntity(ctx, key)
			if err != nil || ent == nil {
				return r, err
			}
			docs, err := s.graph.DocumentsMentioning(ctx, key, limit)
			if err != nil {
				return r, err
			}
			r.Found = true
			r.Entity = ent
			if docs != nil {
				r.Documents = docs
			}
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	out.Query = name
	return &out, nil
}

// PathBetween finds the shortest undirected RELATES_TO path of at most
// maxHops edges. maxHops 0 means DefaultMaxHops.
func (s *Service) PathBetween(ctx context.Context, from, to string, maxHops int) (res *knowledge.PathResult, err error) {
	if maxHops == 0 {
		maxHops = DefaultMaxHops
	}
	if err := check("path_between", pathParams{From: from, To: to, MaxHops: maxHops}); err != nil {
		return nil, err
	}
	fromKey, toKey := knowledge.CanonicalKey(from), knowledge.CanonicalKey(to)
	if fromKey == toKey {
		return nil, knowledge.QueryError("path_between", "from and to name the same entity")
	}
	ctx, done := s.observe(ctx, "path_between",
		attribute.String("kg.from", fromKey),
		attribute.String("kg.to", toKey),
		attribute.Int("kg.max_hops", maxHops),
	)
	defer func() { done(err) }()

	out, err := cache.GetOrLoad(ctx, s.cache, s.cache.Keys().Path(fromKey, toKey, maxHops), s.opts.PathTTL,
		func(ctx context.Context) (knowledge.PathResult, error) {
			r := knowledge.PathResult{MaxHops: maxHops, Nodes: []knowledge.Entity{}, Relations: []string{}}
			nodes, rels, found, err := s.graph.ShortestPath(ctx, fromKey, toKey, maxHops)
			if err != nil || !found {
				return r, err
			}
			r.Found = true
			r.Nodes = nodes
			r.Relations = rels
			r.Hops = len(rels)
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	out.From, out.To = from, to
	return &out, nil
}

// CentralEntities ranks entities by relationship degree.
func (s *Service) CentralEntities(ctx context.Context, limit int) (res []knowledge.CentralEntity, err error) {
	limit = normalizeLimit(limit)
	if err := check("central_entities", limitParams{Limit: limit}); err != nil {
		return nil, err
	}
	ctx, done := s.observe(ctx, "central_entities", attribute.Int("kg.limit", limit))
	defer func() { done(err) }()

	return cache.GetOrLoad(ctx, s.cache, s.cache.Keys().Central(limit), s.opts.TTL,
		func(ctx context.Context) ([]knowledge.CentralEntity, error) {
			out, err := s.graph.CentralEntities(ctx, limit)
			if out == nil && err == nil {
				out = []knowledge.CentralEntity{}
			}
			return out, err
		})
}

// Stats summarizes the graph.
func (s *Service) Stats(ctx context.Context) (res *knowledge.GraphStats, err error) {
	ctx, done := s.observe(ctx, "stats")
	defer func() { done(err) }()

	out, err := cache.GetOrLoad(ctx, s.cache, s.cache.Keys().Stats(), s.opts.TTL,
		func(ctx context.Context) (knowledge.GraphStats, error) {
			st, err := s.graph.Stats(ctx)
			if err != nil || st == nil {
				return knowledge.GraphStats{}, err
			}
			return *st, nil
		})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
