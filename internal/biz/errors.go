package biz

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse class of a DomainError.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindAuth        ErrorKind = "auth"
	KindUnavailable ErrorKind = "unavailable"
	KindInternal    ErrorKind = "internal"
)

// Reasons refine a kind. Dispatch decisions may depend on them.
const (
	ReasonValidation         = "validation_error"
	ReasonConfiguration      = "configuration_error"
	ReasonAPI                = "api_error"
	ReasonDataFormat         = "data_format_error"
	ReasonDataType           = "data_type_error"
	ReasonEmptyJoke          = "empty_joke"
	ReasonCityNotFound       = "city_not_found"
	ReasonJokeNotFound       = "joke_not_found"
	ReasonSearch             = "search_error"
	ReasonServiceUnavailable = "service_unavailable"
	ReasonAuth               = "auth_error"
)

// DomainError is returned by every use case and repository in this layer.
// Values are built once at the failure site and never modified.
type DomainError struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Service string
}

func (e *DomainError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s): %s", e.Service, e.Kind, e.Reason, e.Message)
}

// NewDomainError builds a DomainError.
func NewDomainError(kind ErrorKind, reason, message, service string) *DomainError {
	return &DomainError{Kind: kind, Reason: reason, Message: message, Service: service}
}

// AsDomainError extracts a *DomainError from err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
