package domain

import "fmt"

// Kind is the closed set of failure categories the identity core reports.
type Kind string

const (
	KindDuplicateEmail     Kind = "DUPLICATE_EMAIL"
	KindDuplicateIdentity  Kind = "DUPLICATE_IDENTITY"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindAccountNotFound    Kind = "ACCOUNT_NOT_FOUND"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindUpstreamFailure    Kind = "UPSTREAM_VERIFICATION_FAILURE"
	KindStoreFailure       Kind = "STORE_FAILURE"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindNotFound           Kind = "NOT_FOUND"
)

var messages = map[Kind]string{
	KindDuplicateEmail:     "Email already in use",
	KindDuplicateIdentity:  "This sign-in identity is already linked to another account",
	KindInvalidCredentials: "Invalid credentials",
	KindInvalidToken:       "Invalid token",
	KindAccountNotFound:    "User not found",
	KindUnauthorized:       "Not authorized",
	KindForbidden:          "Access denied: Admin permission required",
	KindUpstreamFailure:    "Identity provider verification failed",
	KindStoreFailure:       "Service temporarily unavailable",
	KindInvalidInput:       "Invalid input",
	KindNotFound:           "Not found",
}

// Error is a tagged failure. Detail and Err are for logs only and are never
// shown to API callers; Message returns the stable text for the kind.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Sentinels for errors.Is matching. Matching is by kind, so a wrapped
// failure with extra detail still matches its sentinel.
var (
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail}
	ErrDuplicateIdentity  = &Error{Kind: KindDuplicateIdentity}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrUpstreamFailure    = &Error{Kind: KindUpstreamFailure}
	ErrStoreFailure       = &Error{Kind: KindStoreFailure}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// NewError builds a tagged failure with a developer-facing detail.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError builds a tagged failure around an underlying cause.
func WrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// InvalidInput reports a request that failed shape validation. The detail
// is caller-safe and is surfaced by the transport layer.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" && e.Err == nil {
		return e.Message()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
}

// Message returns the generic caller-facing text for the failure kind.
func (e *Error) Message() string {
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return "Unexpected error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
