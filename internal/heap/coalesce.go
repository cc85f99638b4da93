package heap

// coalesce merges b with any free physical neighbors, inserts the
// resulting block into the index, and fixes up the following block's
// prev_free bit. Returns the (possibly merged) free block.
//
// b may arrive either still shaped as an allocated block (the free(b) path:
// alloc size s occupies s+1 words, header, no footer) or already reshaped
// as a free block by the caller (extendHeap's freshly-carved tail,
// shrinkInPlace's freed remainder: both already carry a footer). Only the
// former needs adjustment: converting an allocated block to standalone
// free, with no neighbor to absorb, must reclaim one of its words as the
// new footer, landing on free size s-1 (occupying (s-1)+2 = s+1 words,
// span-conserving) — the mirror image of place()'s free-to-alloc
// absorb-whole case, which gains a word the same way in the other
// direction. bFree below is b's word budget as a free block, computed
// accordingly from whichever shape it actually arrived in.
func (e *Engine) coalesce(b blockPtr) blockPtr {
	prevFree := prevIsFree(b)
	next := nextBlock(b)
	nextFree := isFree(next)
	bFree := sizeOf(b)
	if !isFree(b) {
		bFree--
	}

	switch {
	case prevFree && nextFree:
		prev := prevBlock(b)
		nextNext := nextBlock(next)
		e.take(prev)
		e.take(next)
		setSize(prev, sizeOf(prev)+bFree+sizeOf(next)+4)
		e.insert(prev)
		setPrevFree(nextNext, true)
		return prev

	case nextFree:
		nextNext := nextBlock(next)
		e.take(next)
		setHeaderFields(b, bFree+sizeOf(next)+2, false, prevFree)
		e.insert(b)
		setPrevFree(nextNext, true)
		return b

	case prevFree:
		prev := prevBlock(b)
		e.take(prev)
		setSize(prev, sizeOf(prev)+bFree+2)
		e.insert(prev)
		setPrevFree(next, true)
		return prev

	default:
		setHeaderFields(b, bFree, false, prevFree)
		e.insert(b)
		setPrevFree(next, true)
		return b
	}
}
