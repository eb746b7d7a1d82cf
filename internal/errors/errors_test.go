package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeNotFound, "workflow missing")
	assert.Equal(t, "NOT_FOUND: workflow missing", err.Error())

	wrapped := Wrap(fmt.Errorf("row scan failed"), ErrCodeInternal, "load request")
	assert.Equal(t, "INTERNAL: load request: row scan failed", wrapped.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeAlreadyProcessed, CodeOf(Newf(ErrCodeAlreadyProcessed, "assignee %s", "a-1")))
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain error")))

	// The code survives wrapping with %w.
	inner := NotFound("approval_request", "req-1")
	outer := fmt.Errorf("processing action: %w", inner)
	assert.Equal(t, ErrCodeNotFound, CodeOf(outer))
	assert.True(t, IsCode(outer, ErrCodeNotFound))
	assert.False(t, IsCode(outer, ErrCodeAlreadyProcessed))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, ErrCodeInternal, "query failed")
	assert.True(t, stderrors.Is(err, cause))
}

func TestConstructors(t *testing.T) {
	nf := NotFound("assignee", "a-9")
	assert.Equal(t, ErrCodeNotFound, nf.Code)
	assert.Contains(t, nf.Message, `"a-9"`)

	in := InvalidInput("tenant_id", "tenant id is required")
	assert.Equal(t, ErrCodeInvalidInput, in.Code)
	assert.Contains(t, in.Message, "tenant_id")
}
