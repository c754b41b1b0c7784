package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/envutil"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/neo4jdb"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/openai"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/redisdb"
)

type Config struct {
	Service ServiceConfig  `yaml:"service"`
	Log     LogConfig      `yaml:"log"`
	HTTP    HTTPConfig     `yaml:"http"`
	Neo4j   neo4jdb.Config `yaml:"neo4j"`
	Redis   redisdb.Config `yaml:"redis"`
	Cache   CacheConfig    `yaml:"cache"`
	LLM     openai.Config  `yaml:"llm"`
	Ingest  IngestConfig   `yaml:"ingest"`
	Ledger  LedgerConfig   `yaml:"ledger"`
}

type ServiceConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LogConfig struct {
	Mode  string `yaml:"mode" validate:"oneof=development dev production prod"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" validate:"gte=0"`
	HealthTimeout  time.Duration `yaml:"health_timeout" validate:"gte=0"`
}

type CacheConfig struct {
	// Namespace prefixes every key; flushes never leave it.
	Namespace string        `yaml:"namespace" validate:"required,alphanum"`
	TTL       time.Duration `yaml:"ttl" validate:"gt=0"`
	PathTTL   time.Duration `yaml:"path_ttl" validate:"gte=0"`
}

type IngestConfig struct {
	Concurrency   int           `yaml:"concurrency" validate:"gte=1,lte=64"`
	FlushSize     int           `yaml:"flush_size" validate:"gte=1,lte=10000"`
	PreviewChars  int           `yaml:"preview_chars" validate:"gte=0"`
	ChunkSize     int           `yaml:"chunk_size" validate:"gte=1"`
	WriteTimeout  time.Duration `yaml:"write_timeout" validate:"gte=0"`
	WatchDebounce time.Duration `yaml:"watch_debounce" validate:"gte=0"`
}

type LedgerConfig struct {
	// DSN is a postgres URL or a sqlite path. Empty disables the ledger.
	DSN string `yaml:"dsn"`
}

func Defaults() Config {
	return Config{
		Service: ServiceConfig{Name: "kgraph", Environment: "development"},
		Log:     LogConfig{Mode: "development"},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
			ShutdownGrace:  10 * time.Second,
			HealthTimeout:  3 * time.Second,
		},
		Neo4j: neo4jdb.Config{
			URI:         "neo4j://localhost:7687",
			User:        "neo4j",
			Timeout:     10 * time.Second,
			MaxPoolSize: 50,
		},
		Redis: redisdb.Config{Timeout: 2 * time.Second},
		Cache: CacheConfig{Namespace: "kg", TTL: 5 * time.Minute, PathTTL: 5 * time.Minute},
		Ingest: IngestConfig{
			Concurrency:   4,
			FlushSize:     50,
			PreviewChars:  500,
			ChunkSize:     500,
			WriteTimeout:  60 * time.Second,
			WatchDebounce: 500 * time.Millisecond,
		},
	}
}

// Load reads the optional YAML file at path, then the environment (after
// loading envFiles, ".env" by default), then validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()
	if path = strings.TrimSpace(path); path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := loadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv never overrides variables already set in the process.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Name = envutil.String("SERVICE_NAME", cfg.Service.Name)
	cfg.Service.Environment = envutil.First(cfg.Service.Environment, "ENVIRONMENT", "APP_ENV")
	cfg.Service.Version = envutil.String("SERVICE_VERSION", cfg.Service.Version)

	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)
	cfg.Log.Level = envutil.String("LOG_LEVEL", cfg.Log.Level)

	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if origins := envutil.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.HTTP.AllowedOrigins = splitList(origins)
	}
	cfg.HTTP.RequestTimeout = envutil.Seconds("HTTP_REQUEST_TIMEOUT_SECONDS", cfg.HTTP.RequestTimeout)

	cfg.Neo4j = neo4jdb.ConfigFromEnv(cfg.Neo4j)
	cfg.Redis = redisdb.ConfigFromEnv(cfg.Redis)
	cfg.LLM = openai.ConfigFromEnv(cfg.LLM)

	cfg.Cache.Namespace = envutil.String("CACHE_NAMESPACE", cfg.Cache.Namespace)
	cfg.Cache.TTL = envutil.Seconds("CACHE_TTL_SECONDS", cfg.Cache.TTL)
	cfg.Cache.PathTTL = envutil.Seconds("CACHE_PATH_TTL_SECONDS", cfg.Cache.PathTTL)

	cfg.Ingest.Concurrency = envutil.Int("INGEST_CONCURRENCY", cfg.Ingest.Concurrency)
	cfg.Ingest.FlushSize = envutil.Int("INGEST_FLUSH_SIZE", cfg.Ingest.FlushSize)
	cfg.Ingest.PreviewChars = envutil.Int("INGEST_PREVIEW_CHARS", cfg.Ingest.PreviewChars)
	cfg.Ingest.ChunkSize = envutil.Int("INGEST_CHUNK_SIZE", cfg.Ingest.ChunkSize)

	cfg.Ledger.DSN = envutil.String("LEDGER_DSN", cfg.Ledger.DSN)
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
