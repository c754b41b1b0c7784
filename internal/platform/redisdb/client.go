package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/envutil"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Config struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

func ConfigFromEnv(def Config) Config {
	cfg := def
	cfg.Addr = envutil.String("REDIS_ADDR", cfg.Addr)
	cfg.Password = envutil.String("REDIS_PASSWORD", cfg.Password)
	cfg.DB = envutil.Int("REDIS_DB", cfg.DB)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	cfg.Timeout = envutil.Seconds("REDIS_TIMEOUT_SECONDS", cfg.Timeout)
	return cfg
}

type Client struct {
	RDB     *goredis.Client
	Timeout time.Duration
	log     *logger.Logger
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redisdb: missing addr")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	c := &Client{RDB: rdb, Timeout: timeout, log: log.With("client", "RedisDB")}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	c.log.Info("redis connected", "addr", addr, "db", cfg.DB)
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.RDB == nil {
		return fmt.Errorf("redisdb: client not initialized")
	}
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.RDB == nil {
		return nil
	}
	return c.RDB.Close()
}
