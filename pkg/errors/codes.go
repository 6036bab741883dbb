package errors

import (
	"net/http"
)

// ErrorCode identifies a specific failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_009"
	ErrCodeTimeout            ErrorCode = "COMMON_010"
)

// Compliance engine error codes. A deadline violation blocks the write, an
// incomplete checklist blocks completion, an illegal transition blocks a
// lifecycle change. All are recoverable at the caller boundary.
const (
	ErrCodeCaseNotFound        ErrorCode = "CASE_001"
	ErrCodeDeadlineViolation   ErrorCode = "CASE_002"
	ErrCodeChecklistIncomplete ErrorCode = "CASE_003"
	ErrCodeIllegalTransition   ErrorCode = "CASE_004"
	ErrCodeExecutionNotFound   ErrorCode = "CASE_005"
	ErrCodeTemplateNotFound    ErrorCode = "CASE_006"
	ErrCodeCompetencyMalformed ErrorCode = "CASE_007"
)

// Aliases kept short for call-site readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// HTTPStatus maps an ErrorCode to the HTTP status the interfaces layer
// should respond with. Unknown codes map to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeCompetencyMalformed:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeCaseNotFound, ErrCodeExecutionNotFound, ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeIllegalTransition:
		return http.StatusConflict
	case ErrCodeDeadlineViolation, ErrCodeChecklistIncomplete:
		return http.StatusUnprocessableEntity
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
