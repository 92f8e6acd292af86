package location

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLocationCapability means no watcher is available at all.
	ErrNoLocationCapability = errors.New("no location capability")
	// ErrNoSignalAcquired means a session ended without a single fix.
	ErrNoSignalAcquired = errors.New("no location signal acquired")
)

// Platform errors reported by watchers.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrFixTimeout          = errors.New("timed out waiting for a fix")
	ErrSamplingDeadline    = errors.New("sampling deadline reached")
)

// SignalError is returned when a session rejects with no sample recorded.
// It matches ErrNoSignalAcquired and the platform cause with errors.Is.
type SignalError struct {
	Cause error
}

func (e *SignalError) Error() string {
	if e.Cause == nil {
		return ErrNoSignalAcquired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoSignalAcquired, e.Cause)
}

func (e *SignalError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNoSignalAcquired}
	}
	return []error{ErrNoSignalAcquired, e.Cause}
}

// PermissionDenied reports whether the platform refused access rather than lacking a signal.
func (e *SignalError) PermissionDenied() bool {
	return errors.Is(e.Cause, ErrPermissionDenied)
}
