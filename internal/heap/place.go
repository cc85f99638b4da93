package heap

// place consumes free block b (currently of size c words) to satisfy an
// allocation request of a payload words. It either splits b into an
// allocated head and a free remainder, or hands the whole block over when
// the remainder would be too small to stand on its own.
//
// Word accounting: b occupies c+2 words (header, c payload, footer). A
// split allocated block of a payload words occupies a+1 words (header
// only, no footer); the remainder must then hold the other
// (c+2)-(a+1) = c-a+1 words, i.e. a free block of size (c-a+1)-2 = c-a-1
// payload words. That only works while c-a-1 >= 2 (every free block carries
// at least two payload words for its pred/succ links), hence the c >= a+3
// guard below. When it doesn't hold, the whole block is handed over as one
// allocation of c+1 payload words, reclaiming the footer word it no longer
// needs as extra payload.
func (e *Engine) place(b blockPtr, a int) blockPtr {
	c := sizeOf(b)
	e.take(b)
	prevFree := prevIsFree(b)

	if c >= a+3 {
		setHeaderFields(b, a, true, prevFree)
		rem := blockPtr(addWords(payloadOf(b), a))
		setHeaderFields(rem, c-a-1, false, false) // b (immediately before rem) is allocated
		e.insert(rem)
		setPrevFree(nextBlock(rem), true)
		return b
	}

	setHeaderFields(b, c+1, true, prevFree)
	setPrevFree(nextBlock(b), false)
	return b
}
