package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedaiyu-site/Graduation-project/internal/data/cache"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	httpH "github.com/hedaiyu-site/Graduation-project/internal/http/handlers"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/pipeline"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type fakeQuery struct {
	lastName  string
	lastLimit int
	lastHops  int
	err       error
}

func (f *fakeQuery) RelatedEntities(_ context.Context, name string, limit int) (*knowledge.RelatedResult, error) {
	f.lastName, f.lastLimit = name, limit
	if f.err != nil {
		return nil, f.err
	}
	return &knowledge.RelatedResult{Query: name, Found: name == "Neo4j", Related: []knowledge.RelatedEntity{}}, nil
}

func (f *fakeQuery) DocumentsMentioning(_ context.Context, name string, limit int) (*knowledge.DocumentsResult, error) {
	f.lastName, f.lastLimit = name, limit
	return &knowledge.DocumentsResult{Query: name, Documents: []knowledge.DocumentRef{}}, f.err
}

func (f *fakeQuery) PathBetween(_ context.Context, from, to string, maxHops int) (*knowledge.PathResult, error) {
	f.lastHops = maxHops
	if f.err != nil {
		return nil, f.err
	}
	return &knowledge.PathResult{From: from, To: to, MaxHops: maxHops}, nil
}

func (f *fakeQuery) CentralEntities(_ context.Context, limit int) ([]knowledge.CentralEntity, error) {
	f.lastLimit = limit
	return []knowledge.CentralEntity{}, f.err
}

func (f *fakeQuery) Stats(context.Context) (*knowledge.GraphStats, error) {
	return &knowledge.GraphStats{Entities: 2}, f.err
}

type fakeIngest struct {
	got   []knowledge.DocumentInput
	force bool
	err   error
}

func (f *fakeIngest) Ingest(_ context.Context, docs []knowledge.DocumentInput, opts ...pipeline.IngestOptions) (*knowledge.BatchSummary, error) {
	f.got = docs
	if len(opts) > 0 {
		f.force = opts[0].Force
	}
	s := &knowledge.BatchSummary{RunID: "run-1"}
	for _, d := range docs {
		s.Record(knowledge.DocumentResult{ID: d.ID, Status: knowledge.DocumentProcessed})
	}
	return s, f.err
}

type testEnv struct {
	router *gin.Engine
	query  *fakeQuery
	ingest *fakeIngest
	kv     *cache.MemoryKV
	cache  *cache.Cache
}

func newTestEnv(t *testing.T, checks map[string]httpH.Pinger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	q := &fakeQuery{}
	in := &fakeIngest{}
	kv := cache.NewMemoryKV()
	c := cache.New(kv, logger.Nop(), cache.Options{})
	r := NewRouter(RouterConfig{
		Log:           logger.Nop(),
		QueryHandler:  httpH.NewQueryHandler(q, logger.Nop()),
		IngestHandler: httpH.NewIngestHandler(in, logger.Nop()),
		CacheHandler:  httpH.NewCacheHandler(c, logger.Nop()),
		HealthHandler: httpH.NewHealthHandler(checks, 0),
	})
	return &testEnv{router: r, query: q, ingest: in, kv: kv, cache: c}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRelatedRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/entities/Neo4j/related?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Neo4j", env.query.lastName)
	assert.Equal(t, 5, env.query.lastLimit)
	assert.Equal(t, true, decode(t, w)["found"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestCentralRouteIsNotAnEntityName(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/entities/central?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, env.query.lastLimit)
	assert.Contains(t, decode(t, w), "entities")
}

func TestQueryErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/paths?from=a&to=b&max_hops=x", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_query", body["error"].(map[string]any)["code"])

	env.query.err = knowledge.QueryError("path_between", "max_hops must be <= 6")
	w = env.do(t, http.MethodGet, "/api/paths?from=a&to=b&max_hops=9", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 9, env.query.lastHops)

	env.query.err = errors.New("boom")
	w = env.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIngestRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/ingest",
		`{"documents":[{"id":"a.md","raw":"Neo4j is a graph database.","meta":{"title":"A","tags":["x"]}}],"force":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.ingest.got, 1)
	assert.Equal(t, "A", env.ingest.got[0].Meta.Title)
	assert.True(t, env.ingest.force)
	summary := decode(t, w)["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["processed"])

	w = env.do(t, http.MethodPost, "/api/ingest", `{"documents":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/ingest", `{"documents":[{"raw":"no id"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestRouteReportsAbortWithSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingest.err = knowledge.GraphWriteError("entities", true, errors.New("connection reset"))
	w := env.do(t, http.MethodPost, "/api/ingest", `{"documents":[{"id":"a.md","raw":"x"}]}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "summary")
	assert.Equal(t, true, body["error"].(map[string]any)["retryable"])
}

func TestCacheInvalidateRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	keys := env.cache.Keys()
	require.NoError(t, env.kv.Set(ctx, keys.Related("go", 10), `{}`, 0))
	require.NoError(t, env.kv.Set(ctx, keys.Stats(), `{}`, 0))

	w := env.do(t, http.MethodPost, "/api/cache/invalidate", `{"pattern":"kg:entity:*"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["removed"])
	assert.Equal(t, 1, env.kv.Len())

	w = env.do(t, http.MethodPost, "/api/cache/invalidate", `{"pattern":"session:*"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/cache/invalidate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, env.kv.Len())
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, map[string]httpH.Pinger{
		"neo4j": httpH.PingFunc(func(context.Context) error { return nil }),
		"redis": httpH.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	w := env.do(t, http.MethodGet, "/healthcheck", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["neo4j"].(map[string]any)["status"])
	assert.Equal(t, "down", checks["redis"].(map[string]any)["status"])
}
