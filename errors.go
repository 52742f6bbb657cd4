package xtables

import "errors"

// The error taxonomy from §7. Every sentinel is errors.Is-compatible;
// wrapping functions attach context with fmt.Errorf("...: %w", ...).
var (
	// ErrTransport covers a send/receive failure on any endpoint that does
	// not fit a more specific category below.
	ErrTransport = errors.New("xtables: transport error")

	// ErrTransportReset is returned to every Req caller whose request was
	// in flight when the Req endpoint was torn down and rebuilt.
	ErrTransportReset = errors.New("xtables: transport reset")

	// ErrTimeout marks a Req call that exceeded its receive deadline.
	ErrTimeout = errors.New("xtables: timeout")

	// ErrDecode marks a malformed frame the codec could not parse.
	ErrDecode = errors.New("xtables: decode error")

	// ErrTypeMismatch is returned when a reply's Type tag does not match
	// the caller's expected type.
	ErrTypeMismatch = errors.New("xtables: type mismatch")

	// ErrNotPresent is returned by a typed Get when the reply carries no
	// value (Type UNKNOWN or the value field absent).
	ErrNotPresent = errors.New("xtables: value not present")

	// ErrValidation marks a key that fails the validation rules in §6.
	ErrValidation = errors.New("xtables: validation error")

	// ErrNotFound is returned by the Endpoint Resolver when every
	// resolution strategy is exhausted.
	ErrNotFound = errors.New("xtables: not found")

	// ErrCallback names the callback-failure category of the taxonomy. A
	// panic in a user-registered subscription callback is recovered and
	// logged by the subscription router without this sentinel, and it is
	// never returned to the caller that registered the callback.
	ErrCallback = errors.New("xtables: callback error")
)
