package neo4jdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/envutil"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Config struct {
	URI         string        `yaml:"uri" validate:"required"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxPoolSize int           `yaml:"max_pool_size" validate:"gte=1"`
}

// ConfigFromEnv reads NEO4J_* variables on top of def.
func ConfigFromEnv(def Config) Config {
	cfg := def
	cfg.URI = envutil.String("NEO4J_URI", cfg.URI)
	cfg.User = envutil.String("NEO4J_USER", cfg.User)
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	cfg.Password = envutil.String("NEO4J_PASSWORD", cfg.Password)
	cfg.Database = envutil.String("NEO4J_DATABASE", cfg.Database)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.Timeout = envutil.Seconds("NEO4J_TIMEOUT_SECONDS", cfg.Timeout)
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}
	cfg.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", cfg.MaxPoolSize)
	return cfg
}

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	Timeout  time.Duration
	log      *logger.Logger
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, fmt.Errorf("neo4jdb: missing uri")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	client := &Client{
		Driver:   driver,
		Database: strings.TrimSpace(cfg.Database),
		Timeout:  timeout,
		log:      log.With("client", "Neo4jDB"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	client.log.Info("neo4j connected", "neo4j_uri", uri, "database", client.Database)
	return client, nil
}

// NewFromEnv returns nil, nil when NEO4J_URI is unset.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	cfg := ConfigFromEnv(Config{})
	if cfg.URI == "" {
		return nil, nil
	}
	return New(log, cfg)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return fmt.Errorf("neo4jdb: client not initialized")
	}
	if err := c.Driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}
	return nil
}

func (c *Client) WriteSession(ctx context.Context) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
}

func (c *Client) ReadSession(ctx context.Context) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Database,
	})
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
