package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is the structured failure returned by every client operation.
// It carries enough of the HTTP exchange to decide whether a retry helps.
type Error struct {
	StatusCode int               `json:"status_code,omitempty"`
	Code       ErrCode           `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`

	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
		}
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the transport or decode error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches an ErrCode target against the error's code.
func (e *Error) Is(target error) bool {
	code, ok := target.(ErrCode)
	return ok && code == e.Code
}

// Retryable reports whether re-issuing the same request may succeed.
func (e *Error) Retryable() bool { return e.Code.Retryable() }

// ────────────────────────────────────────────────────────────────────────────
// Constructors
// ────────────────────────────────────────────────────────────────────────────

// New builds an error with the default message for code.
func New(code ErrCode) *Error {
	return &Error{Code: code, Message: GetMessage(code)}
}

// NewNetworkError wraps a failure that happened before any HTTP status was seen.
func NewNetworkError(err error, requestID string) *Error {
	code := ErrNetwork
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		code = ErrTimeout
	}
	return &Error{Code: code, Message: GetMessage(code), RequestID: requestID, cause: err}
}

// NewDecodeError wraps a body that could not be decompressed or parsed.
func NewDecodeError(status int, err error, requestID string) *Error {
	return &Error{StatusCode: status, Code: ErrDecode, Message: GetMessage(ErrDecode), RequestID: requestID, cause: err}
}

// FromHTTP classifies a non-2xx response. The body may take any of the
// shapes the backend uses: {"error": "..."}, {"detail": "..."}, or a map of
// field names to message lists.
func FromHTTP(status int, body []byte, requestID string) *Error {
	e := &Error{StatusCode: status, Code: codeForStatus(status), RequestID: requestID}

	var raw map[string]json.RawMessage
	if len(body) > 0 && json.Unmarshal(body, &raw) == nil {
		if msg, ok := stringField(raw, "error"); ok {
			e.Message = msg
		} else if msg, ok := stringField(raw, "detail"); ok {
			e.Message = msg
			if code, ok := stringField(raw, "code"); ok && code == "token_not_valid" {
				e.Code = ErrTokenExpired
			}
		} else {
			e.Fields = fieldErrors(raw)
		}
	}

	if status == 400 && strings.Contains(strings.ToLower(e.Message), "already submitted") {
		e.Code = ErrExamAlreadySubmitted
	}
	if e.Message == "" {
		e.Message = GetMessage(e.Code)
	}
	return e
}

// CodeOf extracts the error code from err, or ErrUnexpected.
func CodeOf(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var code ErrCode
	if errors.As(err, &code) {
		return code
	}
	return ErrUnexpected
}

// IsRetryable reports whether err is a transient client failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return CodeOf(err).Retryable()
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// fieldErrors flattens {"field": ["msg", ...]} or {"field": "msg"}.
func fieldErrors(raw map[string]json.RawMessage) map[string]string {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			fields[k] = strings.Join(list, "; ")
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			fields[k] = s
			continue
		}
		fields[k] = string(v)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
