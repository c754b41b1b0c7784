package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/envutil"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type Config struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	Model      string        `yaml:"model"`
	RPS        float64       `yaml:"rps" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
}

func ConfigFromEnv(def Config) Config {
	cfg := def
	cfg.APIKey = envutil.First(cfg.APIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	cfg.BaseURL = envutil.First(cfg.BaseURL, "LLM_BASE_URL", "OPENAI_BASE_URL")
	cfg.Model = envutil.First(cfg.Model, "LLM_MODEL", "OPENAI_MODEL")
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	cfg.RPS = envutil.Float("LLM_RPS", cfg.RPS)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.Timeout = envutil.Seconds("LLM_TIMEOUT_SECONDS", cfg.Timeout)
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	cfg.MaxRetries = envutil.Int("LLM_MAX_RETRIES", cfg.MaxRetries)
	return cfg
}

// Client is the chat-completion surface used for model based extraction.
type Client interface {
	// GenerateJSON asks for a JSON object and returns the raw message content.
	GenerateJSON(ctx context.Context, system, user string) (string, error)
	Model() string
}

type client struct {
	log        *logger.Logger
	api        *goopenai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	oc := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		api:        goopenai.NewClientWithConfig(oc),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

func (c *client) Model() string { return c.model }

func (c *client) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if !isRetryable(err) {
				break
			}
			c.log.Warn("chat completion failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}

func isRetryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
