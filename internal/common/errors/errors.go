// Package errors provides standardized error codes for the assistant and
// their conversion to BPMN errors for workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"
	ErrCodeProductNotFound         ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity         ErrorCode = "INVALID_QUANTITY"
	ErrCodeStockUpdateFailed       ErrorCode = "STOCK_UPDATE_FAILED"
	ErrCodeCatalogUnavailable      ErrorCode = "CATALOG_UNAVAILABLE"

	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeFallbackFailed      ErrorCode = "FALLBACK_FAILED"
	ErrCodeFallbackRateLimited ErrorCode = "FALLBACK_RATE_LIMITED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeBrokerRejected    ErrorCode = "BROKER_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var knownCodes = map[ErrorCode]bool{
	ErrCodeInvalidInput:             true,
	ErrCodeCollaboratorUnavailable:  true,
	ErrCodeProductNotFound:          true,
	ErrCodeInvalidQuantity:          true,
	ErrCodeStockUpdateFailed:        true,
	ErrCodeCatalogUnavailable:       true,
	ErrCodeSessionStoreFailed:       true,
	ErrCodeFallbackFailed:           true,
	ErrCodeFallbackRateLimited:      true,
	ErrCodeNotificationSendFailed:   true,
	ErrCodeDatabaseConnectionFailed: true,
	ErrCodeQueryExecutionFailed:     true,
	ErrCodeSearchQueryFailed:        true,
	ErrCodeBrokerUnavailable:        true,
	ErrCodeBrokerRejected:           true,
}

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 2. Constructors
// ==========================

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Input failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCollaboratorUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCollaboratorUnavailable,
		Message:   "Inventory service temporarily unavailable",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

func NewProductNotFoundError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProductNotFound,
		Message:   "Product not found",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewStockUpdateFailedError(sku string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStockUpdateFailed,
		Message:   "Stock update failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"sku": sku},
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Failed to connect to database",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBrokerError wraps a failed workflow engine command. Transient failures
// are retryable; rejections are not.
func NewBrokerError(operation string, err error, transient bool) *StandardError {
	code := ErrCodeBrokerRejected
	if transient {
		code = ErrCodeBrokerUnavailable
	}
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("Workflow engine operation %s failed", operation),
		Details:   err.Error(),
		Retryable: transient,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf finds the first known code in err's chain. Package sentinels are
// created as errors.New("<CODE>") and wrapped with %w, so the code is the
// text of some error in the chain.
func CodeOf(err error) ErrorCode {
	for err != nil {
		var std *StandardError
		if stderrors.As(err, &std) {
			return std.Code
		}
		if code := ErrorCode(err.Error()); knownCodes[code] {
			return code
		}
		err = stderrors.Unwrap(err)
	}
	return ErrCodeInternal
}

// FromError normalizes any error into a StandardError.
func FromError(err error) *StandardError {
	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}
	code := CodeOf(err)
	if code == ErrCodeInternal {
		return NewInternalError(err)
	}
	return &StandardError{
		Code:      code,
		Message:   strings.ToLower(strings.ReplaceAll(string(code), "_", " ")),
		Details:   err.Error(),
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCollaboratorUnavailable,
		ErrCodeCatalogUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeBrokerUnavailable:
		return 3

	case ErrCodeStockUpdateFailed,
		ErrCodeFallbackFailed:
		return 2

	case ErrCodeFallbackRateLimited:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 4. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "COLLABORATOR") || strings.Contains(codeStr, "PRODUCT") ||
		strings.Contains(codeStr, "STOCK") || strings.Contains(codeStr, "CATALOG"):
		return "INVENTORY"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "FALLBACK"):
		return "AI"
	case strings.Contains(codeStr, "BROKER"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
