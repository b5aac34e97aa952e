package offload

import (
	"golang.org/x/sys/unix"
)

// Errors returned by the offload layer. Policer driver failures are returned as is.
var (
	// ErrNotSupported is returned for requests and rules the hardware cannot express
	ErrNotSupported error = unix.EOPNOTSUPP
	// ErrExist is returned when a second rule claims the port policer
	ErrExist error = unix.EEXIST
	// ErrNotFound is returned when a rule does not own the port policer
	ErrNotFound error = unix.ENOENT
	// ErrNoDevice is returned for setup requests on unknown ports
	ErrNoDevice error = unix.ENODEV
	// ErrInvalid is returned for malformed requests
	ErrInvalid error = unix.EINVAL
)
