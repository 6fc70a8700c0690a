package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_018"
)

// Aliases used by the factory helpers.
const (
	CodeUnknown      = ErrorCode("")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// HELM notation error codes. Each maps to one class of the processing
// pipeline so callers can tell a syntax problem from a semantic one.
const (
	ErrCodeHELMParse            ErrorCode = "HELM_001"
	ErrCodeHELMValidation       ErrorCode = "HELM_002"
	ErrCodeHELMCanonicalization ErrorCode = "HELM_003"
	ErrCodeHELMUnknownAnalogue  ErrorCode = "HELM_004"
	ErrCodeHELMStructure        ErrorCode = "HELM_005"
	ErrCodeHELMUnsupported      ErrorCode = "HELM_006"
)

// Monomer registry error codes
const (
	ErrCodeMonomerNotFound       ErrorCode = "MONO_001"
	ErrCodeRegistryNotLoaded     ErrorCode = "MONO_002"
	ErrCodeMonomerLibraryInvalid ErrorCode = "MONO_003"
	ErrCodeMonomerSourceFailed   ErrorCode = "MONO_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,

	ErrCodeHELMParse:            http.StatusBadRequest,
	ErrCodeHELMValidation:       http.StatusUnprocessableEntity,
	ErrCodeHELMCanonicalization: http.StatusUnprocessableEntity,
	ErrCodeHELMUnknownAnalogue:  http.StatusUnprocessableEntity,
	ErrCodeHELMStructure:        http.StatusUnprocessableEntity,
	ErrCodeHELMUnsupported:      http.StatusBadRequest,

	ErrCodeMonomerNotFound:       http.StatusNotFound,
	ErrCodeRegistryNotLoaded:     http.StatusServiceUnavailable,
	ErrCodeMonomerLibraryInvalid: http.StatusBadRequest,
	ErrCodeMonomerSourceFailed:   http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessageQueueError:  "message queue error",

	ErrCodeHELMParse:            "malformed HELM notation",
	ErrCodeHELMValidation:       "invalid HELM notation",
	ErrCodeHELMCanonicalization: "notation cannot be canonicalized",
	ErrCodeHELMUnknownAnalogue:  "monomer has no natural analogue",
	ErrCodeHELMStructure:        "invalid chemical structure",
	ErrCodeHELMUnsupported:      "unsupported notation feature",

	ErrCodeMonomerNotFound:       "monomer not found",
	ErrCodeRegistryNotLoaded:     "monomer registry not loaded",
	ErrCodeMonomerLibraryInvalid: "invalid monomer library",
	ErrCodeMonomerSourceFailed:   "monomer source unavailable",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
