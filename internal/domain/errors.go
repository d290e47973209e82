package domain

import "fmt"

// ErrNotFound is returned when a lookup by ID finds nothing.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Entity, e.ID)
}

// ValidationError is returned at the HTTP boundary for malformed input; it
// never reaches downstream components (spec.md §7).
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

func NewValidationError(format string, args ...interface{}) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnsubscribed indicates an operation was refused because the target
// subscriber is not active.
type ErrUnsubscribed struct {
	SubscriberID string
}

func (e *ErrUnsubscribed) Error() string {
	return fmt.Sprintf("subscriber %s is not active", e.SubscriberID)
}

// ProviderErrorKind discriminates the Provider Client's failure taxonomy
// (spec.md §4.2).
type ProviderErrorKind string

const (
	ProviderErrorTransport   ProviderErrorKind = "transport"
	ProviderErrorRateLimited ProviderErrorKind = "rate_limited"
	ProviderErrorClient      ProviderErrorKind = "client_error"
	ProviderErrorServer      ProviderErrorKind = "server_error"
	ProviderErrorParse       ProviderErrorKind = "parse_error"
)

// ErrProvider wraps a failure from the external email provider, carrying
// enough context for callers to decide retry vs. surface (spec.md §7).
type ErrProvider struct {
	Kind       ProviderErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ErrProvider) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s, status=%d]: %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error [%s, status=%d]: %s", e.Kind, e.StatusCode, e.Message)
}

func (e *ErrProvider) Unwrap() error { return e.Err }

// Retryable reports whether the Provider Client should retry this failure
// (transport errors, any 5xx, and 429; for a 429 the retry loop waits for
// the provider's Retry-After when one is sent).
func (e *ErrProvider) Retryable() bool {
	switch e.Kind {
	case ProviderErrorTransport, ProviderErrorServer, ProviderErrorRateLimited:
		return true
	default:
		return false
	}
}

// ErrBroadcastDelivery records a failed attempt to deliver a broadcast or
// transactional send to a specific recipient, for operator diagnosis.
type ErrBroadcastDelivery struct {
	CampaignID string
	Email      string
	Reason     string
	Err        error
}

func (e *ErrBroadcastDelivery) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed [campaign=%s] to %s: %s - %v", e.CampaignID, e.Email, e.Reason, e.Err)
	}
	return fmt.Sprintf("delivery failed [campaign=%s] to %s: %s", e.CampaignID, e.Email, e.Reason)
}

func (e *ErrBroadcastDelivery) Unwrap() error { return e.Err }
