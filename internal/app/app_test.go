package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedaiyu-site/Graduation-project/internal/data/cache"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

func TestNewWithoutRedisDisablesCaching(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""

	a, err := New(context.Background(), logger.Nop(), cfg, Options{CacheOnly: true})
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NotNil(t, a.Services.Cache)
	assert.Nil(t, a.Services.Graph)
	assert.Nil(t, a.Handlers.Query)

	// Every read goes to the graph, so a write from another process is
	// visible at once.
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) { calls++; return calls, nil }
	for i := 1; i <= 2; i++ {
		v, err := cache.GetOrLoad(ctx, a.Services.Cache, a.Services.Cache.Keys().Stats(), 0, load)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 2, calls)

	n, err := a.Services.Cache.InvalidatePattern(ctx, a.Services.Cache.Keys().All())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestServeRequiresFullWiring(t *testing.T) {
	cfg := Defaults()
	a, err := New(context.Background(), logger.Nop(), cfg, Options{CacheOnly: true})
	require.NoError(t, err)
	defer a.Close(context.Background())
	require.Error(t, a.Serve(context.Background()))
}

func TestRouterHealthWithoutGraph(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	cfg := Defaults()
	clients := Clients{}
	services := wireServices(log, cfg, clients, Options{})
	a := &App{
		Log:      log,
		Cfg:      cfg,
		Clients:  clients,
		Services: services,
		Handlers: wireHandlers(log, cfg, clients, services),
	}

	checks := healthChecks(cfg, clients, services)
	assert.Empty(t, checks)

	withRedis := cfg
	withRedis.Redis.Addr = "127.0.0.1:1"
	assert.Contains(t, healthChecks(withRedis, clients, services), "cache")

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWireCacheUnreachableRedisReadsThrough(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = "127.0.0.1:1"
	c := wireCache(logger.Nop(), cfg, Clients{})
	require.Error(t, c.Ping(context.Background()))

	calls := 0
	for i := 0; i < 2; i++ {
		_, err := cache.GetOrLoad(context.Background(), c, "kg:stats", 0, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
