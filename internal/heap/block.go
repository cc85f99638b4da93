// Package heap implements the allocator engine: block layout, the hybrid
// free-block index, boundary-tag coalescing, heap extension, placement, and
// the structural checker, plus the byte-to-word sizing of requests
// (payloadWords). The root package, which is the sole importer of this one,
// wraps it in the public Allocator type and adds Callocate.
package heap

import "unsafe"

// wordSize is the unit of measurement throughout the engine: 4 bytes.
const wordSize = 4

const (
	sizeMask    = 0x3FFFFFFF // bits 0-29
	allocBit    = uint32(1) << 30
	prevFreeBit = uint32(1) << 31
)

// blockPtr addresses the header word of a block. It is never nil except as
// an explicit "no block" sentinel in call sites that need one.
type blockPtr unsafe.Pointer

func addWords(p unsafe.Pointer, words int) unsafe.Pointer {
	return unsafe.Add(p, words*wordSize)
}

func readWord(p unsafe.Pointer) uint32  { return *(*uint32)(p) }
func writeWord(p unsafe.Pointer, v uint32) { *(*uint32)(p) = v }

// sizeOf returns the payload size, in words, encoded in b's header.
func sizeOf(b blockPtr) int {
	return int(readWord(unsafe.Pointer(b)) & sizeMask)
}

// isFree reports whether b's own alloc bit is clear.
func isFree(b blockPtr) bool {
	return readWord(unsafe.Pointer(b))&allocBit == 0
}

// prevIsFree reports whether the block physically preceding b is free, per
// b's own header bit.
func prevIsFree(b blockPtr) bool {
	return readWord(unsafe.Pointer(b))&prevFreeBit != 0
}

// footerPtr returns the address of b's footer, valid only when b is free.
func footerPtr(b blockPtr, size int) blockPtr {
	return blockPtr(addWords(unsafe.Pointer(b), 1+size))
}

// markFree sets b's header (and footer) to free, size-unchanged, with the
// given previous-block-free bit.
func markFree(b blockPtr, prevFree bool) {
	size := sizeOf(b)
	h := uint32(size)
	if prevFree {
		h |= prevFreeBit
	}
	writeWord(unsafe.Pointer(b), h)
	writeWord(unsafe.Pointer(footerPtr(b, size)), h)
}

// markAlloc sets b's header to allocated, size-unchanged, with the given
// previous-block-free bit. Allocated blocks carry no footer.
func markAlloc(b blockPtr, prevFree bool) {
	size := sizeOf(b)
	h := uint32(size) | allocBit
	if prevFree {
		h |= prevFreeBit
	}
	writeWord(unsafe.Pointer(b), h)
}

// setSize rewrites b's size field in place, preserving its alloc/prev_free
// bits, and keeping the footer in sync if b is free.
func setSize(b blockPtr, size int) {
	h := readWord(unsafe.Pointer(b))
	h = (h &^ sizeMask) | uint32(size)
	writeWord(unsafe.Pointer(b), h)
	if h&allocBit == 0 {
		writeWord(unsafe.Pointer(footerPtr(b, size)), h)
	}
}

// setHeaderFields writes a block's header (and footer, if it ends up free)
// from scratch: the one place all three bit-packed fields are assigned
// together, used whenever a block changes identity (split, absorb, extend).
func setHeaderFields(b blockPtr, size int, alloc, prevFree bool) {
	h := uint32(size)
	if alloc {
		h |= allocBit
	}
	if prevFree {
		h |= prevFreeBit
	}
	writeWord(unsafe.Pointer(b), h)
	if !alloc {
		writeWord(unsafe.Pointer(footerPtr(b, size)), h)
	}
}

// setPrevFree flips b's own prev_free bit without touching size or alloc.
func setPrevFree(b blockPtr, free bool) {
	h := readWord(unsafe.Pointer(b))
	if free {
		h |= prevFreeBit
	} else {
		h &^= prevFreeBit
	}
	writeWord(unsafe.Pointer(b), h)
	if h&allocBit == 0 {
		size := int(h & sizeMask)
		writeWord(unsafe.Pointer(footerPtr(b, size)), h)
	}
}

// payloadOf returns the address of the first payload word of b.
func payloadOf(b blockPtr) unsafe.Pointer {
	return addWords(unsafe.Pointer(b), 1)
}

// blockOfPayload recovers a block's header address from a payload pointer
// previously returned by payloadOf.
func blockOfPayload(p unsafe.Pointer) blockPtr {
	return blockPtr(addWords(p, -1))
}

// nextBlock returns the block physically following b.
func nextBlock(b blockPtr) blockPtr {
	extra := 0
	if isFree(b) {
		extra = 1 // footer word
	}
	return blockPtr(addWords(unsafe.Pointer(b), 1+sizeOf(b)+extra))
}

// prevBlock returns the block physically preceding b. Preconditioned on
// prevIsFree(b); the predecessor's footer (immediately before b) carries its
// size.
func prevBlock(b blockPtr) blockPtr {
	footer := addWords(unsafe.Pointer(b), -1)
	prevSize := int(readWord(footer) & sizeMask)
	return blockPtr(addWords(unsafe.Pointer(b), -(prevSize + 2)))
}
