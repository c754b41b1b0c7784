package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hedaiyu-site/Graduation-project/internal/data/cache"
	"github.com/hedaiyu-site/Graduation-project/internal/http/response"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type CacheInvalidator interface {
	Keys() cache.Keys
	Invalidate(ctx context.Context, keys ...string) (int64, error)
	InvalidatePattern(ctx context.Context, pattern string) (int64, error)
}

type CacheHandler struct {
	cache CacheInvalidator
	log   *logger.Logger
}

func NewCacheHandler(c CacheInvalidator, log *logger.Logger) *CacheHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheHandler{cache: c, log: log.With("handler", "CacheHandler")}
}

type invalidateRequest struct {
	Pattern string   `json:"pattern" binding:"max=512"`
	Keys    []string `json:"keys" binding:"max=1000"`
}

// POST /api/cache/invalidate
//
// Patterns and keys must stay inside the cache namespace; an empty request
// flushes the whole namespace.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	keys := h.cache.Keys()
	prefix := keys.Namespace + ":"
	if req.Pattern == "" && len(req.Keys) == 0 {
		req.Pattern = keys.All()
	}
	if req.Pattern != "" && !strings.HasPrefix(req.Pattern, prefix) {
		response.RespondError(c, http.StatusBadRequest, "invalid_pattern", fmt.Errorf("pattern must start with %q", prefix))
		return
	}
	for _, k := range req.Keys {
		if !strings.HasPrefix(k, prefix) {
			response.RespondError(c, http.StatusBadRequest, "invalid_key", fmt.Errorf("key %q must start with %q", k, prefix))
			return
		}
	}

	ctx := c.Request.Context()
	var removed int64
	if len(req.Keys) > 0 {
		n, err := h.cache.Invalidate(ctx, req.Keys...)
		if err != nil {
			response.RespondAPIError(c, err)
			return
		}
		removed += n
	}
	if req.Pattern != "" {
		n, err := h.cache.InvalidatePattern(ctx, req.Pattern)
		if err != nil {
			response.RespondAPIError(c, err)
			return
		}
		removed += n
	}
	h.log.Info("cache invalidated", "pattern", req.Pattern, "keys", len(req.Keys), "removed", removed)
	response.RespondOK(c, gin.H{"removed": removed, "pattern": req.Pattern})
}
