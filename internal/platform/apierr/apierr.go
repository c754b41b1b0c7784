package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps service errors onto HTTP status and code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var ke *knowledge.Error
	if errors.As(err, &ke) {
		switch ke.Kind {
		case knowledge.KindQuery:
			return New(http.StatusBadRequest, "invalid_query", err)
		case knowledge.KindDocumentParse:
			return New(http.StatusUnprocessableEntity, "document_parse_failed", err)
		case knowledge.KindGraphWrite:
			return New(http.StatusServiceUnavailable, "graph_write_failed", err)
		case knowledge.KindCacheUnavailable:
			return New(http.StatusServiceUnavailable, "cache_unavailable", err)
		}
	}
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout, "timeout", err)
	case errors.Is(err, context.Canceled):
		return New(499, "canceled", err)
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
