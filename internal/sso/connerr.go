package sso

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureClass classifies a connectivity failure reported by a provider.
type FailureClass string

const (
	// FailureTimeout is an exceeded connect or read deadline.
	FailureTimeout FailureClass = "TIMEOUT"
	// FailureNetwork is a refused, reset or otherwise failed connection.
	FailureNetwork FailureClass = "NETWORK_ERROR"
	// FailureServer is an upstream 5xx response.
	FailureServer FailureClass = "SERVER_ERROR"
	// FailureConfig is a missing or invalid tenant configuration. It is
	// never fallbackable.
	FailureConfig FailureClass = "CONFIG_ERROR"
)

// ConnectionError is the distinguished error a provider returns for
// connectivity-class failures. Credential failures are never reported this
// way; they are Result failures. The classification exists solely to drive
// the fallback decision.
type ConnectionError struct {
	// Class is the failure classification.
	Class FailureClass
	// HTTPStatus is the upstream status code, 0 when not an HTTP failure.
	HTTPStatus int

	message string
	cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("sso connection error (%s): %s: %v", e.Class, e.message, e.cause)
	}

	return fmt.Sprintf("sso connection error (%s): %s", e.Class, e.message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// Fallbackable reports whether tenant policy may resolve this failure by
// re-authenticating locally. Configuration errors are excluded: neither a
// retry nor a fallback can fix a misconfiguration.
func (e *ConnectionError) Fallbackable() bool {
	return e.Class == FailureTimeout || e.Class == FailureNetwork || e.Class == FailureServer
}

// TimeoutError builds a TIMEOUT connection error.
func TimeoutError(message string, cause error) *ConnectionError {
	return &ConnectionError{Class: FailureTimeout, message: message, cause: cause}
}

// NetworkError builds a NETWORK_ERROR connection error.
func NetworkError(message string, cause error) *ConnectionError {
	return &ConnectionError{Class: FailureNetwork, message: message, cause: cause}
}

// ServerError builds a SERVER_ERROR connection error for an upstream 5xx.
func ServerError(status int, message string) *ConnectionError {
	return &ConnectionError{Class: FailureServer, HTTPStatus: status, message: message}
}

// ConfigError builds a CONFIG_ERROR connection error.
func ConfigError(message string) *ConnectionError {
	return &ConnectionError{Class: FailureConfig, message: message}
}

// classifyTransport maps a transport-level error onto a connection error.
// Deadline and timeout failures become TIMEOUT, everything else NETWORK_ERROR.
func classifyTransport(message string, err error) *ConnectionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError(message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError(message, err)
	}

	return NetworkError(message, err)
}
