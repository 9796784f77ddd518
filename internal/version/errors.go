// internal/version/errors.go
package version

import "errors"

var (
	ErrNotInitialized     = errors.New("version: engine not initialized")
	ErrAlreadyInitialized = errors.New("version: engine already initialized")
	ErrBadHandle          = errors.New("version: handle out of range")
	ErrBadArgument        = errors.New("version: bad argument")
	ErrNoMemory           = errors.New("version: out of memory")
)
