package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrDuplicate          = fmt.Errorf("duplicate")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrRoutingService     = fmt.Errorf("routing completion service failed")
	ErrAgentNotFound      = fmt.Errorf("agent not found")
	ErrLoopCeiling        = fmt.Errorf("supervisor round ceiling reached")
	ErrMaxIterations      = fmt.Errorf("agent reached max iterations")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrProviderError      = fmt.Errorf("provider error")
	ErrRateLimit          = fmt.Errorf("rate limit exceeded")
	ErrContextOverflow    = fmt.Errorf("context window exceeded")
	ErrToolNotFound       = fmt.Errorf("tool not found")
	ErrDatasetUnavailable = fmt.Errorf("dataset unavailable")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Router.Route")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderError)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeRoutingService     ErrorCode = "ROUTING_SERVICE"
	CodeAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
	CodeLoopCeiling        ErrorCode = "LOOP_CEILING"
	CodeMaxIterations      ErrorCode = "MAX_ITERATIONS"
	CodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	CodeProviderError      ErrorCode = "PROVIDER_ERROR"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeContextOverflow    ErrorCode = "CONTEXT_OVERFLOW"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeDatasetUnavailable ErrorCode = "DATASET_UNAVAILABLE"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:           CodeNotFound,
	ErrDuplicate:          CodeDuplicate,
	ErrInvalidInput:       CodeInvalidInput,
	ErrRoutingService:     CodeRoutingService,
	ErrAgentNotFound:      CodeAgentNotFound,
	ErrLoopCeiling:        CodeLoopCeiling,
	ErrMaxIterations:      CodeMaxIterations,
	ErrSessionNotFound:    CodeSessionNotFound,
	ErrProviderError:      CodeProviderError,
	ErrRateLimit:          CodeRateLimit,
	ErrContextOverflow:    CodeContextOverflow,
	ErrToolNotFound:       CodeToolNotFound,
	ErrDatasetUnavailable: CodeDatasetUnavailable,
	ErrConfigLoad:         CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
