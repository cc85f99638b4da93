package heap

import "errors"

// ErrOutOfMemory is returned when HeapSource can no longer grow the heap far
// enough to satisfy a request. The root package re-exports this value so
// callers can compare against it with errors.Is without importing this
// package directly.
var ErrOutOfMemory = errors.New("heap: out of memory")
