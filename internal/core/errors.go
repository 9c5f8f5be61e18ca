package core

import "errors"

// Error taxonomy of the gateway. Only precondition failures (auth, input,
// session state) are surfaced to the invoking caller; per-recipient
// delivery failures and store failures are logged and swallowed.
var (
	// ErrAuthentication means identity could not be established from the
	// connection's credentials. Fatal to the connection attempt.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation means malformed operation input. Reported to the
	// caller only, the connection stays open.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidState means the operation was invoked on a session that
	// is not in the connected state.
	ErrInvalidState = errors.New("session not connected")

	// ErrRoomDenied means the access-control collaborator refused a join.
	ErrRoomDenied = errors.New("room access denied")

	// ErrRateLimited means the user exceeded the per-user send rate.
	// Reported to the caller only.
	ErrRateLimited = errors.New("rate limited")

	// ErrBackpressure is returned by a transport connection whose send
	// queue is full. The frame is dropped for that recipient only.
	ErrBackpressure = errors.New("backpressure")

	// ErrConnClosed is returned when sending to an already closed
	// transport connection.
	ErrConnClosed = errors.New("connection closed")
)
