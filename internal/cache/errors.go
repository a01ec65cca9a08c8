package cache

import (
	"errors"
	"fmt"
)

// ErrNotInMemory is returned by InfoCache.Delete when the identity has no
// entry in the memory tier. Deleting an untracked identity is a caller bug,
// not a miss.
var ErrNotInMemory = errors.New("identity not in memory cache")

// DeserializationError wraps a malformed on-disk metadata record. It is fatal
// for the calling request; the cache never discards or retries the record.
type DeserializationError struct {
	Path string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("unreadable metadata record %s: %v", e.Path, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
