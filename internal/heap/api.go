package heap

import "unsafe"

// Allocate reserves n bytes and returns a pointer to the first payload
// byte, or nil if n <= 0. Returns ErrOutOfMemory if the heap cannot be
// grown far enough to satisfy the request.
func (e *Engine) Allocate(n int) (unsafe.Pointer, error) {
	b, err := e.allocate(n)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	return payloadOf(b), nil
}

// Free releases the block whose payload starts at p.
func (e *Engine) Free(p unsafe.Pointer) {
	e.free(blockOfPayload(p))
}

// Reallocate resizes the block whose payload starts at p to hold n bytes.
// p == nil behaves like Allocate(n); n <= 0 behaves like Free(p). The
// returned pointer may differ from p if the payload had to move.
func (e *Engine) Reallocate(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	var b blockPtr
	if p != nil {
		b = blockOfPayload(p)
	}
	nb, err := e.reallocate(b, n)
	if err != nil {
		return nil, err
	}
	if nb == nil {
		return nil, nil
	}
	return payloadOf(nb), nil
}

// PayloadBytes returns a []byte view over exactly the payload words of the
// block starting at p.
func (e *Engine) PayloadBytes(p unsafe.Pointer) []byte {
	b := blockOfPayload(p)
	return unsafe.Slice((*byte)(p), sizeOf(b)*wordSize)
}
