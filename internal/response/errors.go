package response

// ErrCode is a typed error code enum for consistent API error identification.
// An ErrCode is itself an error so callers can write
// errors.Is(err, response.ErrNotFound).
type ErrCode string

const (
	// ─── Transport ─────────────────────────────────────────────────────
	ErrNetwork     ErrCode = "NETWORK_ERROR"
	ErrTimeout     ErrCode = "TIMEOUT"
	ErrServer      ErrCode = "SERVER_ERROR"
	ErrRateLimited ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrDecode      ErrCode = "DECODE_ERROR"

	// ─── Authentication ────────────────────────────────────────────────
	ErrUnauthorized ErrCode = "UNAUTHORIZED"
	ErrTokenExpired ErrCode = "TOKEN_EXPIRED"
	ErrForbidden    ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotAvailable     ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamAlreadySubmitted ErrCode = "EXAM_ALREADY_SUBMITTED"

	// ─── Fallback ──────────────────────────────────────────────────────
	ErrUnexpected ErrCode = "UNEXPECTED_ERROR"
)

// Error implements the error interface.
func (c ErrCode) Error() string {
	return GetMessage(c)
}

// Retryable reports whether an operation that failed with c may succeed when
// re-invoked unchanged.
func (c ErrCode) Retryable() bool {
	switch c {
	case ErrNetwork, ErrTimeout, ErrServer, ErrRateLimited:
		return true
	}
	return false
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Transport ─────────────────────────────────────────────────────
	case ErrNetwork:
		return "Could not reach the exam server."
	case ErrTimeout:
		return "The exam server did not answer in time."
	case ErrServer:
		return "The exam server failed to process the request."
	case ErrRateLimited:
		return "Too many requests. Please try again shortly."
	case ErrDecode:
		return "The exam server sent an unreadable response."

	// ─── Authentication ────────────────────────────────────────────────
	case ErrUnauthorized:
		return "Authentication is required or has failed."
	case ErrTokenExpired:
		return "Your login has expired. Please log in again."
	case ErrForbidden:
		return "You are not allowed to perform this action."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource is in a conflicting state."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not available."
	case ErrExamAlreadySubmitted:
		return "This exam has already been submitted."

	default:
		return "An unexpected error occurred."
	}
}

// codeForStatus maps an HTTP status to the default error code.
func codeForStatus(status int) ErrCode {
	switch {
	case status == 400 || status == 422:
		return ErrValidation
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 408:
		return ErrTimeout
	case status == 409:
		return ErrConflict
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	default:
		return ErrUnexpected
	}
}
