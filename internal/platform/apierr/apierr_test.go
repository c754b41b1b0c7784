package apierr

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

func TestFromErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{knowledge.QueryError("path_between", "bad"), http.StatusBadRequest, "invalid_query"},
		{fmt.Errorf("wrap: %w", knowledge.GraphWriteError("documents", true, nil)), http.StatusServiceUnavailable, "graph_write_failed"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{New(http.StatusConflict, "busy", nil), http.StatusConflict, "busy"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
	assert.Nil(t, FromError(nil))
}
