// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Sentinel Errors
// ==========================

// Sentinels returned by the engine components. Wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrInvalidConfiguration   = stderrors.New("INVALID_CONFIGURATION")
	ErrNoProviderConfigured   = stderrors.New("NO_PROVIDER_CONFIGURED")
	ErrEmbeddingProvider      = stderrors.New("EMBEDDING_PROVIDER_ERROR")
	ErrGenerationFailed       = stderrors.New("GENERATION_FAILED")
	ErrExtractionParseFailure = stderrors.New("EXTRACTION_PARSE_FAILURE")
	ErrKnowledgeStore         = stderrors.New("KNOWLEDGE_STORE_ERROR")
	ErrCatalogUnavailable     = stderrors.New("CATALOG_UNAVAILABLE")
	ErrNotificationSend       = stderrors.New("NOTIFICATION_SEND_FAILED")
)

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidConfiguration   ErrorCode = "INVALID_CONFIGURATION"
	ErrCodeNoProviderConfigured   ErrorCode = "NO_PROVIDER_CONFIGURED"
	ErrCodeEmbeddingProvider      ErrorCode = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeGenerationFailed       ErrorCode = "GENERATION_FAILED"
	ErrCodeExtractionParseFailure ErrorCode = "EXTRACTION_PARSE_FAILURE"

	ErrCodeKnowledgeStore     ErrorCode = "KNOWLEDGE_STORE_ERROR"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
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

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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
// 4. Error Constructors
// ==========================

// NewInvalidConfigurationError creates a non-retryable configuration error.
func NewInvalidConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoProviderConfiguredError is permanent until the deployment is reconfigured.
func NewNoProviderConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoProviderConfigured,
		Message:   "No AI provider configured",
		Details:   "set OPENAI_API_KEY or GEMINI_API_KEY",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingProviderError creates a retryable embedding error.
func NewEmbeddingProviderError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingProvider,
		Message:   "Embedding provider error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable completion error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Response generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionParseFailureError is informational; extraction failures never fail a job.
func NewExtractionParseFailureError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionParseFailure,
		Message:   "Requirement extraction could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewKnowledgeStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeKnowledgeStore,
		Message:   "Knowledge base operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Property catalog unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// FromError maps sentinel-wrapped errors onto a StandardError. A StandardError
// anywhere in the chain is returned as-is.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	stdErr = fromSentinel(err)

	// A wrapped cause that knows it is permanent (e.g. an HTTP 4xx) wins
	// over the sentinel's default.
	var hint retryHint
	if stdErr.Retryable && stderrors.As(err, &hint) && !hint.Retryable() {
		stdErr.Retryable = false
	}
	return stdErr
}

// retryHint is implemented by causes that can tell whether a retry may help.
type retryHint interface {
	Retryable() bool
}

func fromSentinel(err error) *StandardError {
	switch {
	case stderrors.Is(err, ErrInvalidConfiguration):
		return NewInvalidConfigurationError(err.Error())
	case stderrors.Is(err, ErrNoProviderConfigured):
		e := NewNoProviderConfiguredError()
		e.Details = err.Error()
		return e
	case stderrors.Is(err, ErrEmbeddingProvider):
		return NewEmbeddingProviderError(err)
	case stderrors.Is(err, ErrGenerationFailed):
		return NewGenerationFailedError(err)
	case stderrors.Is(err, ErrExtractionParseFailure):
		return NewExtractionParseFailureError(err.Error())
	case stderrors.Is(err, ErrKnowledgeStore):
		return NewKnowledgeStoreError(err)
	case stderrors.Is(err, ErrCatalogUnavailable):
		return NewCatalogUnavailableError(err)
	case stderrors.Is(err, ErrNotificationSend):
		return NewNotificationSendFailedError("unknown", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("worker", err)
	default:
		return NewInternalError(err)
	}
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidConfiguration:   "INVALID_CONFIGURATION",
	ErrCodeNoProviderConfigured:   "NO_PROVIDER_CONFIGURED",
	ErrCodeEmbeddingProvider:      "EMBEDDING_PROVIDER_ERROR",
	ErrCodeGenerationFailed:       "GENERATION_FAILED",
	ErrCodeExtractionParseFailure: "EXTRACTION_PARSE_FAILURE",
	ErrCodeKnowledgeStore:         "KNOWLEDGE_STORE_ERROR",
	ErrCodeCatalogUnavailable:     "CATALOG_UNAVAILABLE",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeInvalidInput:           "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEmbeddingProvider,
		ErrCodeGenerationFailed,
		ErrCodeKnowledgeStore,
		ErrCodeCatalogUnavailable,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeTimeout,
		ErrCodeInternal:
		return 2

	default:
		return 0 // configuration and input errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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
// 6. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROVIDER") || strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "KNOWLEDGE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CATALOG"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
