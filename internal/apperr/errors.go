package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the top-level category of a failed analysis.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindService       Kind = "service"
	KindParse         Kind = "parse"
)

// Reason narrows a Kind. Configuration and service errors carry no reason.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonInvalidInput   Reason = "invalid_input"
	ReasonEmptyInput     Reason = "empty_input"
	ReasonEmpty          Reason = "empty"
	ReasonMalformedJSON  Reason = "malformed_json"
	ReasonSchemaMismatch Reason = "schema_mismatch"
)

// Error is the structured error every pipeline stage returns.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	label := string(e.Kind)
	if e.Reason != ReasonNone {
		label += "/" + string(e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", label, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", label, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Configuration reports a missing or unusable credential.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func InvalidInput(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Reason: ReasonInvalidInput, Message: message, Cause: cause}
}

func EmptyInput(message string) *Error {
	return &Error{Kind: KindValidation, Reason: ReasonEmptyInput, Message: message}
}

// Service reports a failed round trip to the model endpoint.
func Service(message string, cause error) *Error {
	return &Error{Kind: KindService, Message: message, Cause: cause}
}

// Parse reports a response that reached us but could not be used.
func Parse(reason Reason, message string, cause error) *Error {
	return &Error{Kind: KindParse, Reason: reason, Message: message, Cause: cause}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) Reason {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ReasonNone
}

// HTTPStatus maps an error to the status the JSON API responds with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindService:
		return http.StatusBadGateway
	case KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const (
	serviceMessage = "An error occurred while contacting the analysis service. Please check your connection and try again."
	parseMessage   = "The analysis service returned a response that could not be read. Please try again."
	unknownMessage = "An unknown error occurred during analysis. Please check the logs for details."
)

// Message returns the text shown to the user for err. Validation and
// configuration messages are written for the user already; service and parse
// failures get a fixed message so vendor details stay in the logs.
func Message(err error) string {
	appErr, ok := As(err)
	if !ok {
		return unknownMessage
	}
	switch appErr.Kind {
	case KindValidation, KindConfiguration:
		return appErr.Message
	case KindService:
		return serviceMessage
	case KindParse:
		return parseMessage
	default:
		return unknownMessage
	}
}
