// Package sbrk provides the default heap.HeapSource: a single, non-relocating
// backing buffer that only ever grows, modeling the classic sbrk(2) contract
// the engine is built against.
package sbrk

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Arena is a fixed-capacity, grow-only heap source. Its backing slice is
// reserved once at construction and never reallocated, so every address it
// has ever handed out stays valid for the Arena's whole lifetime — the
// property pointer-offset compression in internal/heap depends on.
type Arena struct {
	buf []byte // len grows toward cap; cap is fixed at construction
}

// NewArena reserves maxBytes of backing storage up front. The reservation
// uses dirtmake so the bytes start uninitialized rather than zeroed: the
// engine overwrites every word it cares about with header bits before ever
// reading it, so paying for a zero-fill here would be wasted work.
func NewArena(maxBytes int) *Arena {
	return &Arena{buf: dirtmake.Bytes(0, maxBytes)}
}

// NewArenaWithBuffer builds an Arena over a caller-supplied buffer instead of
// reserving a fresh one, taking cap(buf) as the arena's fixed capacity, so
// backing storage (for example a buffer from internal/arenapool) can be
// recycled across many short-lived arenas.
func NewArenaWithBuffer(buf []byte) *Arena {
	return &Arena{buf: buf[:0]}
}

// Sbrk grows the arena by n bytes and returns a pointer to the start of the
// newly added region. It fails once the reserved capacity is exhausted.
func (a *Arena) Sbrk(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, fmt.Errorf("sbrk: negative request %d", n)
	}
	old := len(a.buf)
	if n > cap(a.buf)-old {
		return nil, fmt.Errorf("sbrk: arena exhausted: need %d more bytes, have %d", n, cap(a.buf)-old)
	}
	a.buf = a.buf[:old+n]
	return unsafe.Pointer(&a.buf[old]), nil
}

// Lo returns the address of the first reserved byte.
func (a *Arena) Lo() uintptr {
	if cap(a.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.buf[:cap(a.buf)][0]))
}

// Hi returns the address one past the last byte currently grown into.
func (a *Arena) Hi() uintptr {
	return a.Lo() + uintptr(len(a.buf))
}

// Size returns the number of bytes currently grown into, i.e. Hi()-Lo().
func (a *Arena) Size() int {
	return len(a.buf)
}
