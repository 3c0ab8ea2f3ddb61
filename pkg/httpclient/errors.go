package httpclient

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed Get.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindClientError      ErrorKind = "client_error"
	KindTimeout          ErrorKind = "timeout"
	KindTransport        ErrorKind = "transport_error"
	KindRetriesExhausted ErrorKind = "retries_exhausted"
	KindCircuitOpen      ErrorKind = "circuit_open"
	KindCanceled         ErrorKind = "canceled"
	KindInvalidBody      ErrorKind = "invalid_body"
	KindTooLarge         ErrorKind = "response_too_large"

	// kindServerError marks a retryable 5xx attempt; callers only ever see
	// KindRetriesExhausted.
	kindServerError ErrorKind = "server_error"
)

// TransportError is the only error type returned by Client.Get.
type TransportError struct {
	Kind       ErrorKind
	StatusCode int
	Service    string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Service, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsTransportError extracts a *TransportError from err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
