package shipsync

import (
	"errors"
	"fmt"
)

// SyncError represents a failure while synchronizing an order with the
// shipment provider.
type SyncError struct {
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for SyncError.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

const (
	codeTransport = "TRANSPORT"
	codeProvider  = "PROVIDER"
)

// NewTransportError wraps a network-level failure reaching the provider.
// These never carry a provider verdict and are always retryable.
func NewTransportError(cause error) *SyncError {
	return &SyncError{
		Code:      codeTransport,
		Message:   "provider unreachable",
		Retryable: true,
		Cause:     cause,
	}
}

// NewProviderError wraps a provider-reported failure: either a non-2xx
// response or a 2xx body with status=false.
func NewProviderError(httpStatus int, message string) *SyncError {
	if message == "" {
		message = fmt.Sprintf("provider rejected shipment (HTTP %d)", httpStatus)
	}
	return &SyncError{
		Code:       codeProvider,
		Message:    message,
		StatusCode: httpStatus,
		Retryable:  true,
	}
}

// IsTransportError reports whether err is a transport-level failure.
func IsTransportError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == codeTransport
}

// IsProviderError reports whether err is a provider-reported failure.
func IsProviderError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == codeProvider
}

// Sentinel errors for the webhook and operator paths.
var (
	// ErrInvalidSignature indicates the webhook body failed signature
	// verification. The event must cause no side effect.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMalformedEvent indicates a webhook event missing required
	// envelope fields or an undecodable body.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrOrderNotFound indicates the order id does not resolve to a
	// known order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidPayloadJSON indicates an operator-supplied payload was
	// not well-formed JSON; the stored payload is left untouched.
	ErrInvalidPayloadJSON = errors.New("payload is not valid JSON")

	// ErrNotEligible indicates the order's destination is outside the
	// served region.
	ErrNotEligible = errors.New("order not eligible for shipping sync")
)

// IsRetryable reports whether the failed operation may be retried.
func IsRetryable(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
