package core

import (
	"errors"
	"fmt"
)

// Error codes for command validation errors.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnknownBattle    = "unknown_battle"
	ErrCodePasswordRequired = "password_required"
	ErrCodeNotConnected     = "not_connected"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeQueueFull        = "queue_full"
)

var (
	// ErrNotFound is returned by lookups of users or battles that do not
	// currently exist. It is an expected race with server state, not a fault.
	ErrNotFound = errors.New("not found")

	ErrBadRequest       = errors.New("bad request")
	ErrUnknownBattle    = errors.New("unknown battle")
	ErrPasswordRequired = errors.New("password required")
	ErrNotConnected     = errors.New("not connected")
	ErrRateLimited      = errors.New("rate limited")
	ErrQueueFull        = errors.New("command queue full")

	ErrAlreadyConnected = errors.New("already connected")
	ErrStalled          = errors.New("connection stalled")
	ErrUnexpectedFirst  = errors.New("unexpected message before greeting")
)

// CommandError rejects an outbound command before it reaches the wire.
type CommandError struct {
	Code    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func commandError(code string, err error, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// BadRequest builds a validation error for a malformed command.
func BadRequest(format string, args ...any) *CommandError {
	return commandError(ErrCodeBadRequest, ErrBadRequest, format, args...)
}

// UnknownBattle builds a validation error for a join of a battle that is not listed.
func UnknownBattle(id BattleID) *CommandError {
	return commandError(ErrCodeUnknownBattle, ErrUnknownBattle, "unknown battle %d", id)
}

// PasswordRequired builds the validation error the UI turns into a password prompt.
func PasswordRequired(id BattleID) *CommandError {
	return commandError(ErrCodePasswordRequired, ErrPasswordRequired, "battle %d requires a password", id)
}

// NotConnected builds a validation error for commands submitted outside a session.
func NotConnected() *CommandError {
	return commandError(ErrCodeNotConnected, ErrNotConnected, "not connected")
}

// RateLimited builds a validation error for commands over the admission rate.
func RateLimited() *CommandError {
	return commandError(ErrCodeRateLimited, ErrRateLimited, "too many commands, slow down")
}

// QueueFull builds a validation error for a saturated outbound queue.
func QueueFull() *CommandError {
	return commandError(ErrCodeQueueFull, ErrQueueFull, "command queue full")
}

// TransportError is fatal to a session: it forces a disconnect and is
// reported once through a Connected(false) event.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is a login rejected by the server.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "login denied: " + e.Reason
}
