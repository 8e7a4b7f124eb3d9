package response

// Stable machine-readable error codes carried alongside the HTTP status.
const (
	CodeAuthRequired      = "AUTHENTICATION_REQUIRED"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeTokenMalformed    = "TOKEN_MALFORMED"
	CodeWrongTokenType    = "WRONG_TOKEN_TYPE"
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeTenantNotResolved = "TENANT_NOT_RESOLVED"
	CodeTenantNotFound    = "TENANT_NOT_FOUND"
	CodeTenantInactive    = "TENANT_INACTIVE"
	CodeTenantMismatch    = "TENANT_MISMATCH"
	CodeBranchDenied      = "BRANCH_ACCESS_DENIED"
	CodeBranchInvalid     = "BRANCH_INVALID"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Response represents a standard API response format
type Response struct {
	Status        string      `json:"status"`      // "success" or "error"
	StatusCode    int         `json:"status_code"` // HTTP status code
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	Code          string      `json:"code,omitempty"`           // stable machine-readable error code
	CorrelationID string      `json:"correlation_id,omitempty"` // request correlation id for support/debugging
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorCode returns an error response carrying a stable code and the request
// correlation id, used for authorization failures where clients branch on
// the code (e.g. refresh on TOKEN_EXPIRED, re-login on INVALID_SIGNATURE).
func ErrorCode(statusCode int, code, err, correlationID string) Response {
	return Response{
		Status:        "error",
		StatusCode:    statusCode,
		Error:         err,
		Code:          code,
		CorrelationID: correlationID,
	}
}
