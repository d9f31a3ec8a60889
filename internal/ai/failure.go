package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind is one case of the closed failure taxonomy surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindInvalidCredential
	KindRateLimited
	KindServerError
	KindOffline
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindOffline:
		return "offline"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Retryable reports whether a manual retry could plausibly succeed
// without a configuration change.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindOffline, KindUnknown:
		return true
	default:
		return false
	}
}

// Sentinels usable with errors.Is against any *Failure.
var (
	ErrMissingCredential = errors.New("api credential is missing")
	ErrInvalidCredential = errors.New("api credential was rejected")
	ErrRateLimited       = errors.New("rate limited")
	ErrServerError       = errors.New("remote server error")
	ErrOffline           = errors.New("network unreachable")
	ErrMalformed         = errors.New("malformed response")
	ErrUnknown           = errors.New("unknown ai failure")
)

var kindSentinels = map[Kind]error{
	KindMissingCredential: ErrMissingCredential,
	KindInvalidCredential: ErrInvalidCredential,
	KindRateLimited:       ErrRateLimited,
	KindServerError:       ErrServerError,
	KindOffline:           ErrOffline,
	KindMalformedResponse: ErrMalformed,
	KindUnknown:           ErrUnknown,
}

// Failure is the typed error every gateway operation returns.
type Failure struct {
	Kind Kind
	Op   string // e.g. "study_plan"
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel for f's kind, so errors.Is(err, ErrRateLimited)
// holds for any rate-limited failure regardless of the underlying cause.
func (f *Failure) Is(target error) bool {
	return kindSentinels[f.Kind] == target
}

// NewFailure wraps err as a failure of the given kind.
func NewFailure(op string, kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

// Fail classifies err and wraps it. A nil err yields nil.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Classify(err), Op: op, Err: err}
}

// KindOf returns the failure kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Classify(err)
}

// StatusError is returned by providers for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini api error (status %d): %s", e.StatusCode, e.Body)
}

// Classify maps a transport or validation error onto the taxonomy.
// Structured signals are consulted first; message sniffing is the last resort
// for opaque errors and falls through to KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrServerError):
		return KindServerError
	case errors.Is(err, ErrMalformed):
		return KindMalformedResponse
	case errors.Is(err, ErrOffline):
		return KindOffline
	}

	var se *StatusError
	if errors.As(err, &se) {
		if k, ok := classifyStatus(se); ok {
			return k
		}
	}

	if isNetworkError(err) {
		return KindOffline
	}

	return classifyMessage(err.Error())
}

func classifyStatus(se *StatusError) (Kind, bool) {
	switch {
	case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
		return KindInvalidCredential, true
	case se.StatusCode == http.StatusTooManyRequests:
		return KindRateLimited, true
	case se.StatusCode >= 500:
		return KindServerError, true
	case se.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(se.Body), "api key"):
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		return KindInvalidCredential, true
	}
	return KindUnknown, false
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func classifyMessage(msg string) Kind {
	e := strings.ToLower(msg)
	switch {
	case strings.Contains(e, "401"), strings.Contains(e, "403"),
		strings.Contains(e, "api key"), strings.Contains(e, "permission"):
		return KindInvalidCredential
	case strings.Contains(e, "429"), strings.Contains(e, "quota"), strings.Contains(e, "rate limit"):
		return KindRateLimited
	case strings.Contains(e, "500"), strings.Contains(e, "502"), strings.Contains(e, "503"),
		strings.Contains(e, "504"), strings.Contains(e, "internal"), strings.Contains(e, "unavailable"):
		return KindServerError
	case strings.Contains(e, "offline"), strings.Contains(e, "network"),
		strings.Contains(e, "connection refused"), strings.Contains(e, "no such host"):
		return KindOffline
	default:
		return KindUnknown
	}
}
