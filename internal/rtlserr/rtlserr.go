// Package rtlserr defines the sentinel error kinds shared across the RTLS
// server and anchor daemon. Callers wrap one of these with fmt.Errorf's %w
// verb and distinguish kinds with errors.Is.
package rtlserr

import "errors"

var (
	// ErrParse marks a malformed MAC or Tail payload. The frame is logged
	// and dropped; the dispatcher continues.
	ErrParse = errors.New("parse error")

	// ErrUnsupportedFrame marks a recognized container with unrecognized
	// content (an unknown subtype, an unhandled security bit, reserved
	// EIEs). Logged and dropped, never silently accepted.
	ErrUnsupportedFrame = errors.New("unsupported frame")

	// ErrBadTimes marks a TDOA computation with a zero denominator or a
	// missing per-anchor bucket. The anchor is skipped; the session
	// continues with the remaining anchors.
	ErrBadTimes = errors.New("bad times")

	// ErrSolveUnderdetermined marks a ranging session with fewer than the
	// minimum anchors required for the configured solve dimensionality.
	// The session completes without publishing a coordinate.
	ErrSolveUnderdetermined = errors.New("solve underdetermined")

	// ErrRPCTimeout marks an anchor RPC call (e.g. PING) that did not
	// respond within its deadline. The anchor is marked inactive and
	// retried.
	ErrRPCTimeout = errors.New("rpc timeout")

	// ErrVersionMismatch marks an RPC envelope whose VER field does not
	// match the version this process speaks. Fatal for that message, not
	// for the process.
	ErrVersionMismatch = errors.New("rpc version mismatch")

	// ErrIO marks a socket or serial transport failure. The caller may
	// restart the affected loop.
	ErrIO = errors.New("io error")

	// ErrOutOfRange marks an RF compensation spline lookup outside every
	// tabulated piece.
	ErrOutOfRange = errors.New("value out of spline range")
)
