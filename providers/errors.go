package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorKind categorizes a failure. The set is closed; every failure that
// crosses a component boundary is normalized to exactly one kind.
type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindTimeout       ErrorKind = "timeout"
	KindAuth          ErrorKind = "auth"
	KindRateLimit     ErrorKind = "rate_limit"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindAPIError      ErrorKind = "api_error"
	KindUnknown       ErrorKind = "unknown"
)

// PluginError is the normalized failure type for the whole pipeline.
type PluginError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Retryable  bool
	Details    map[string]any
	Err        error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is by kind equality.
func (e *PluginError) Is(target error) bool {
	t, ok := target.(*PluginError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value detail and returns the error.
func (e *PluginError) WithDetail(key string, value any) *PluginError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewPluginError creates a new typed error.
func NewPluginError(kind ErrorKind, message string, retryable bool, err error) *PluginError {
	return &PluginError{
		Kind:      kind,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// KindOf returns the kind of err, or KindUnknown when err is not a
// *PluginError.
func KindOf(err error) ErrorKind {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// geoBlockPhrases are known English phrasings backends use when rejecting
// a request by caller region. Best-effort: localized or reworded messages
// fall through to the plain 400 mapping.
var geoBlockPhrases = []string{
	"unsupported_country_region_territory",
	"country, region, or territory not supported",
	"not available in your region",
	"not available in your country",
}

// ClassifyStatus maps an HTTP status plus error body into a PluginError.
// This adapter-level classification can embed provider-specific
// remediation hints the generic classifier cannot know.
func ClassifyStatus(provider string, status int, body []byte, authHint string) *PluginError {
	text := string(body)
	switch {
	case status == 0:
		return NewPluginError(KindNetwork, provider+": request blocked before reaching the backend", true, nil)
	case status == 401 || status == 403:
		msg := provider + ": authentication failed, check your API key"
		if authHint != "" {
			msg += ". " + authHint
		}
		return (&PluginError{Kind: KindAuth, Message: msg, StatusCode: status}).WithDetail("body", text)
	case status == 429:
		return &PluginError{Kind: KindRateLimit, Message: provider + ": rate limit or quota exceeded", StatusCode: status, Retryable: true}
	case status == 400 && isGeoBlocked(text):
		return (&PluginError{
			Kind:       KindAPIError,
			Message:    provider + ": backend rejects requests from your region; configure a forwarding relay URL",
			StatusCode: status,
		}).WithDetail("body", text)
	case status == 400:
		return (&PluginError{Kind: KindAPIError, Message: provider + ": bad request", StatusCode: status}).WithDetail("body", text)
	case status == 402:
		return &PluginError{Kind: KindAPIError, Message: provider + ": billing issue, check your account balance", StatusCode: status}
	case status == 404:
		return &PluginError{Kind: KindAPIError, Message: provider + ": endpoint or model not found", StatusCode: status}
	case status >= 500:
		return &PluginError{Kind: KindAPIError, Message: provider + ": backend server error", StatusCode: status, Retryable: true}
	default:
		return (&PluginError{Kind: KindAPIError, Message: fmt.Sprintf("%s: unexpected status %d", provider, status), StatusCode: status}).WithDetail("body", text)
	}
}

func isGeoBlocked(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range geoBlockPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Classify normalizes an arbitrary error into a PluginError. Order of
// inspection: cancellation markers, transport faults, then unknown.
// Errors that are already a *PluginError pass through unchanged.
func Classify(err error) *PluginError {
	if err == nil {
		return nil
	}
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewPluginError(KindTimeout, "operation cancelled", true, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewPluginError(KindTimeout, "request timed out", true, err)
		}
		return NewPluginError(KindNetwork, "network error", true, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewPluginError(KindNetwork, "network error", true, err)
	}
	return NewPluginError(KindUnknown, err.Error(), false, err)
}
