package heap

import "unsafe"

// payloadWords converts a byte request into the payload word count an
// allocated block must carry. Minimum is 3 words (12 bytes), which leaves a
// free size of 2 words, room for the pred/succ links, once the block is
// later freed; above that
// it grows by 2-word (8-byte) steps, keeping the result odd (allocated
// blocks are always odd-sized, free blocks always even, per the header's
// size-parity convention).
func payloadWords(n int) int {
	if n <= 12 {
		return 3
	}
	return 3 + ceilDiv(n-12, 8)*2
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// allocate reserves n bytes and returns the placed block (its header
// address; payloadOf gives the first payload word), nil for n <= 0, or an
// error if the heap cannot be grown far enough to satisfy the request.
func (e *Engine) allocate(n int) (blockPtr, error) {
	if n <= 0 {
		return nil, nil
	}
	a := payloadWords(n)

	// Free-block sizes are payload-only and even; a-1 is the smallest even
	// size that still leaves >= a payload words once placed (see place.go).
	if b := e.findFit(a - 1); b != nil {
		return e.place(b, a), nil
	}

	// A cold extension must land on a free donor of exactly a-1 payload
	// words (even, matching place()'s absorb-whole gain of +1 on the way
	// back to alloc size a) — header+payload(a-1)+footer = a+1 words.
	ewords := a + 1
	if last := e.lastBlockIfFree(); last != nil {
		// The last block before the epilogue is already free: only grow by
		// what's still missing instead of the whole requested footprint.
		lsize := sizeOf(last)
		if lsize+2 < ewords {
			ewords -= lsize + 2
		} else {
			ewords = 0
		}
	}
	if ewords > 0 {
		if _, err := e.extendHeap(ewords); err != nil {
			return nil, err
		}
	}

	b := e.findFit(a - 1)
	if b == nil {
		return nil, ErrOutOfMemory
	}
	return e.place(b, a), nil
}

// lastBlockIfFree returns the block immediately preceding the epilogue, if
// it is free, or nil (including when that block is the prologue itself).
func (e *Engine) lastBlockIfFree() blockPtr {
	epi := blockPtr(e.epilogue)
	if !prevIsFree(epi) {
		return nil
	}
	return prevBlock(epi)
}

// free releases a previously allocated block, coalescing it with any free
// physical neighbors and returning it to the index.
func (e *Engine) free(b blockPtr) {
	e.coalesce(b)
}

// reallocate resizes the block at b to hold n bytes, preserving its
// contents up to the smaller of the old and new sizes. May return b
// unchanged, a grown/shrunk b in place, or a freshly placed block if the
// payload had to move.
func (e *Engine) reallocate(b blockPtr, n int) (blockPtr, error) {
	if b == nil {
		return e.allocate(n)
	}
	if n <= 0 {
		e.free(b)
		return nil, nil
	}

	a := payloadWords(n)
	cur := sizeOf(b)
	if a == cur {
		return b, nil
	}

	if a < cur {
		return e.shrinkInPlace(b, a), nil
	}

	if grown, ok := e.growInPlace(b, a); ok {
		return grown, nil
	}

	nb, err := e.allocate(n)
	if err != nil {
		return nil, err
	}
	copyWords(payloadOf(nb), payloadOf(b), cur)
	e.free(b)
	return nb, nil
}

// copyWords copies the first n payload words from src to dst. Used on the
// move path of Reallocate, where the new and old blocks never overlap.
func copyWords(dst, src unsafe.Pointer, n int) {
	d := unsafe.Slice((*uint32)(dst), n)
	s := unsafe.Slice((*uint32)(src), n)
	copy(d, s)
}

// shrinkInPlace reduces an allocated block from cur to a payload words,
// releasing the freed tail as its own free block when there's room for one.
//
// b occupies cur+1 words (header, no footer); the shrunk head occupies
// a+1. The tail gets the other cur-a words of span, which as a free block
// (header+payload+footer) means a payload of (cur-a)-2 = cur-a-2.
func (e *Engine) shrinkInPlace(b blockPtr, a int) blockPtr {
	cur := sizeOf(b)
	remPayload := cur - a - 2
	if remPayload < 2 {
		// Not enough room to carve out a standalone free block; keep the
		// whole thing allocated as-is.
		return b
	}
	prevFree := prevIsFree(b)
	setHeaderFields(b, a, true, prevFree)
	rem := blockPtr(addWords(payloadOf(b), a))
	setHeaderFields(rem, remPayload, false, false) // b (immediately before rem) is allocated
	e.coalesce(rem)
	return b
}

// growInPlace attempts to extend b forward into its immediate free
// successor without moving the payload. Returns ok=false if the successor
// isn't free or isn't big enough.
//
// b (allocated, no footer) occupies cur+1 words; next (free) occupies
// sizeOf(next)+2. Merged, that's a span of cur+sizeOf(next)+3 words to
// redistribute. avail := cur+sizeOf(next)+2 is exactly the payload an
// absorb-whole allocation would get (span-1, header only, no footer) —
// the same span-1 that place()'s absorb-whole C+1 gives for a free block
// covering the same span.
func (e *Engine) growInPlace(b blockPtr, a int) (blockPtr, bool) {
	cur := sizeOf(b)
	next := nextBlock(b)
	if !isFree(next) {
		return nil, false
	}
	avail := cur + sizeOf(next) + 2
	if avail < a {
		return nil, false
	}
	e.take(next)
	nextNext := nextBlock(next)
	prevFree := prevIsFree(b)

	if avail >= a+4 {
		setHeaderFields(b, a, true, prevFree)
		rem := blockPtr(addWords(payloadOf(b), a))
		setHeaderFields(rem, avail-a-2, false, false) // b (immediately before rem) is allocated
		e.insert(rem)
		setPrevFree(nextNext, true)
		return b, true
	}
	setHeaderFields(b, avail, true, prevFree)
	setPrevFree(nextNext, false)
	return b, true
}
