package session

import "errors"

var (
	// ErrInvalidTransition means the requested operation is not legal
	// from the machine's current state.
	ErrInvalidTransition = errors.New("session: invalid transition")

	// ErrPINRejected means the identity provider rejected the submitted
	// code and attempts remain.
	ErrPINRejected = errors.New("session: pin rejected")

	// ErrSessionTerminated means a fatal path forced the session back to
	// logged out: the attempt budget was exhausted or credentials could
	// not be recovered.
	ErrSessionTerminated = errors.New("session: terminated")
)
