package openai

import (
	"context"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&goopenai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isRetryable(&goopenai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isRetryable(&goopenai.APIError{HTTPStatusCode: 400}))
	assert.False(t, isRetryable(context.Canceled))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{})
	assert.Error(t, err)

	c, err := NewClient(logger.Nop(), Config{APIKey: "k", Model: "m", RPS: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "m", c.Model())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "from-openai")
	t.Setenv("LLM_RPS", "5")
	cfg := ConfigFromEnv(Config{})
	assert.Equal(t, "from-openai", cfg.APIKey)
	assert.Equal(t, 5.0, cfg.RPS)
	assert.NotEmpty(t, cfg.Model)
}
