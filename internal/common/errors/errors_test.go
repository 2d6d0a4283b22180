package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	unavailable := stderrors.New("COLLABORATOR_UNAVAILABLE")

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"bare sentinel", unavailable, ErrCodeCollaboratorUnavailable},
		{"wrapped sentinel", fmt.Errorf("%w: lookup product: %v", unavailable, "dial tcp"), ErrCodeCollaboratorUnavailable},
		{"double wrapped", fmt.Errorf("interpret: %w", fmt.Errorf("%w: x", stderrors.New("SESSION_STORE_FAILED"))), ErrCodeSessionStoreFailed},
		{"standard error", fmt.Errorf("worker: %w", NewProductNotFoundError("NOPE001")), ErrCodeProductNotFound},
		{"unknown", stderrors.New("boom"), ErrCodeInternal},
		{"nil", nil, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestFromError(t *testing.T) {
	std := FromError(fmt.Errorf("%w: 503", stderrors.New("SEARCH_QUERY_FAILED")))
	assert.Equal(t, ErrCodeSearchQueryFailed, std.Code)
	assert.True(t, std.Retryable)

	internal := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.False(t, internal.Retryable)

	orig := NewInvalidInputError("message is required")
	assert.Same(t, orig, FromError(orig))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewCollaboratorUnavailableError("lookup", stderrors.New("timeout")))
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", vars["errorCode"])
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", vars["originalErrorCode"])

	invalid := ConvertToBPMNError(NewInvalidInputError("bad"))
	assert.Equal(t, 0, invalid.Retries)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "INVENTORY", GetErrorCategory(ErrCodeStockUpdateFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryExecutionFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchQueryFailed))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionStoreFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeFallbackRateLimited))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
}

func TestNewBrokerError(t *testing.T) {
	transient := NewBrokerError("complete-job", assert.AnError, true)
	assert.Equal(t, ErrCodeBrokerUnavailable, transient.Code)
	assert.True(t, transient.Retryable)
	assert.Equal(t, 3, ConvertToBPMNError(transient).Retries)
	assert.Equal(t, "WORKFLOW", GetErrorCategory(transient.Code))

	rejected := NewBrokerError("complete-job", assert.AnError, false)
	assert.Equal(t, ErrCodeBrokerRejected, rejected.Code)
	assert.Equal(t, 0, ConvertToBPMNError(rejected).Retries)
}
