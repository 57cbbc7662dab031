// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrAuthorizationMissing indicates the calendar provider denied read or
	// write access. Plan building treats this as "empty plan", not a failure.
	ErrAuthorizationMissing = errors.New("calendar authorization missing")

	// ErrConfigurationInvalid indicates the target calendar does not exist or
	// is not writable. Apply fails fast on it before touching anything.
	ErrConfigurationInvalid = errors.New("sync configuration invalid")

	// ErrWriteVerification indicates a provider write reported success but a
	// subsequent read-back did not confirm the change.
	ErrWriteVerification = errors.New("write verification failed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
