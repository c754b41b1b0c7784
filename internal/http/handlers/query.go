package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/http/response"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type QueryService interface {
	RelatedEntities(ctx context.Context, name string, limit int) (*knowledge.RelatedResult, error)
	DocumentsMentioning(ctx context.Context, name string, limit int) (*knowledge.DocumentsResult, error)
	PathBetween(ctx context.Context, from, to string, maxHops int) (*knowledge.PathResult, error)
	CentralEntities(ctx context.Context, limit int) ([]knowledge.CentralEntity, error)
	Stats(ctx context.Context) (*knowledge.GraphStats, error)
}

type QueryHandler struct {
	svc QueryService
	log *logger.Logger
}

func NewQueryHandler(svc QueryService, log *logger.Logger) *QueryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &QueryHandler{svc: svc, log: log.With("handler", "QueryHandler")}
}

// intQuery reads an optional integer query parameter; absent means 0.
func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, knowledge.QueryError("parse_params", fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

// GET /api/entities/:name/related?limit=
func (h *QueryHandler) Related(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.svc.RelatedEntities(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/entities/:name/documents?limit=
func (h *QueryHandler) Documents(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.svc.DocumentsMentioning(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/paths?from=&to=&max_hops=
func (h *QueryHandler) Path(c *gin.Context) {
	hops, err := intQuery(c, "max_hops")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.svc.PathBetween(c.Request.Context(), c.Query("from"), c.Query("to"), hops)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/entities/central?limit=
func (h *QueryHandler) Central(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.svc.CentralEntities(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entities": res})
}

// GET /api/stats
func (h *QueryHandler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
