package knowledge

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindDocumentParse      ErrorKind = "document_parse"
	KindExtractionDegraded ErrorKind = "extraction_degraded"
	KindGraphWrite         ErrorKind = "graph_write"
	KindCacheUnavailable   ErrorKind = "cache_unavailable"
	KindQuery              ErrorKind = "query"
)

var ErrNotFound = errors.New("not found")

type Error struct {
	Kind      ErrorKind
	Op        string
	Step      string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return "knowledge graph operation failed"
	}
	head := fmt.Sprintf("%s (op=%s", e.Kind, e.Op)
	if e.Step != "" {
		head += " step=" + e.Step
	}
	head += ")"
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", head, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", head, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", head, e.Cause)
	}
	return head
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func DocumentParseError(op, msg string, cause error) *Error {
	return &Error{Kind: KindDocumentParse, Op: op, Message: msg, Cause: cause}
}

func ExtractionDegraded(op, msg string, cause error) *Error {
	return &Error{Kind: KindExtractionDegraded, Op: op, Message: msg, Cause: cause}
}

func GraphWriteError(step string, retryable bool, cause error) *Error {
	return &Error{Kind: KindGraphWrite, Op: "upsert_batch", Step: step, Cause: cause, Retryable: retryable}
}

func CacheUnavailable(op string, cause error) *Error {
	return &Error{Kind: KindCacheUnavailable, Op: op, Cause: cause, Retryable: true}
}

func QueryError(op, msg string) *Error {
	return &Error{Kind: KindQuery, Op: op, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
