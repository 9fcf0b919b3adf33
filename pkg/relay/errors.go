package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnreachable means the gateway host could not be reached at all.
	ErrGatewayUnreachable = errors.New("gateway unreachable")
	// ErrGatewayRefused means the gateway actively refused the connection,
	// typically API access disabled or wrong port.
	ErrGatewayRefused = errors.New("gateway refused connection")
	// ErrConnectTimeout means the dial or logon handshake did not complete in time.
	ErrConnectTimeout = errors.New("gateway connect timeout")
	// ErrNotConnected means an order was handed to a session that is not logged on.
	ErrNotConnected = errors.New("not connected to gateway")
)

// ValidationError reports a malformed or inconsistent inbound signal. It is
// always the caller's fault and never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
