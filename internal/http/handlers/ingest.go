package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/http/response"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/pipeline"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

const maxIngestDocuments = 1000

type IngestService interface {
	Ingest(ctx context.Context, docs []knowledge.DocumentInput, opts ...pipeline.IngestOptions) (*knowledge.BatchSummary, error)
}

type IngestHandler struct {
	svc IngestService
	log *logger.Logger
}

func NewIngestHandler(svc IngestService, log *logger.Logger) *IngestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &IngestHandler{svc: svc, log: log.With("handler", "IngestHandler")}
}

type ingestDocument struct {
	ID   string                 `json:"id" binding:"required,max=1024"`
	Raw  string                 `json:"raw"`
	Meta *knowledge.FrontMatter `json:"meta"`
}

type ingestRequest struct {
	Documents []ingestDocument `json:"documents" binding:"required,min=1,max=1000,dive"`
	Force     bool             `json:"force"`
}

// POST /api/ingest
//
// The summary is returned even when the run aborts, with the error alongside.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	docs := make([]knowledge.DocumentInput, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, knowledge.DocumentInput{ID: d.ID, Raw: d.Raw, Meta: d.Meta})
	}

	summary, err := h.svc.Ingest(c.Request.Context(), docs, pipeline.IngestOptions{Force: req.Force})
	if err != nil {
		if summary == nil || !pipeline.IsAbort(err) {
			response.RespondAPIError(c, err)
			return
		}
		h.log.Warn("ingest aborted", "run_id", summary.RunID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"summary": summary,
			"error":   response.APIError{Message: err.Error(), Code: "ingest_aborted", Retryable: knowledge.IsRetryable(err)},
		})
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}
