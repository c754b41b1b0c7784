package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	apphttp "github.com/hedaiyu-site/Graduation-project/internal/http"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Options struct {
	// CacheOnly wires the cache alone, for maintenance commands that must not
	// need the graph.
	CacheOnly bool
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Services Services
	Handlers Handlers

	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config, opts ...Options) (*App, error) {
	if log == nil {
		return nil, errors.New("app: logger required")
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Service.Name,
		Environment: cfg.Service.Environment,
		Version:     cfg.Service.Version,
	})
	metrics := observability.Init(log)

	clients, err := wireClients(log, cfg, o)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	services := wireServices(log, cfg, clients, o)

	a := &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Services:     services,
		otelShutdown: shutdown,
	}
	if !o.CacheOnly {
		a.Handlers = wireHandlers(log, cfg, clients, services)
	}
	return a, nil
}

func (a *App) routerConfig() apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:            a.Log,
		Metrics:        a.Metrics,
		ServiceName:    a.Cfg.Service.Name,
		AllowedOrigins: a.Cfg.HTTP.AllowedOrigins,
		RequestTimeout: a.Cfg.HTTP.RequestTimeout,
		QueryHandler:   a.Handlers.Query,
		IngestHandler:  a.Handlers.Ingest,
		CacheHandler:   a.Handlers.Cache,
		HealthHandler:  a.Handlers.Health,
	}
}

func (a *App) Router() *gin.Engine {
	return apphttp.NewRouter(a.routerConfig())
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Handlers.Query == nil {
		return errors.New("app not initialized for serving")
	}
	if err := a.Services.Graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	a.Log.Info("http listening", "addr", a.Cfg.HTTP.Addr)
	return apphttp.NewServer(a.routerConfig()).Run(ctx, a.Cfg.HTTP.Addr, a.Cfg.HTTP.ShutdownGrace)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if err := a.Clients.close(ctx); err != nil {
		a.Log.Warn("close clients", "error", err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
