package heap

import (
	"fmt"
	"unsafe"
)

// HeapSource is the external collaborator the engine extends itself through.
// It models spec's sbrk_like/heap_lo/heap_hi/heap_size primitives: a single
// synchronous growth call plus read-only bounds queries. Implementations
// must never relocate previously returned memory — every offset the engine
// stores is only valid as long as the address it was computed from stays
// put. Package sbrk ships a reference implementation.
type HeapSource interface {
	// Sbrk grows the heap by n bytes and returns a pointer to the start of
	// the newly added region, or an error if the primitive can't satisfy
	// the request.
	Sbrk(n int) (unsafe.Pointer, error)
	// Lo returns the address of the first byte of the heap.
	Lo() uintptr
	// Hi returns the address one past the last byte of the heap.
	Hi() uintptr
	// Size returns Hi()-Lo() in bytes.
	Size() int
}

// Engine is the allocator state for one heap: the fixed heap base
// used for offset compression, the two small-bucket list heads, and the
// size-BST root. Its zero value is not usable; construct with NewEngine.
//
// Engine is not safe for concurrent use: exactly one mutator may call into
// it at a time, and it must not be reentered (e.g. from a signal handler)
// while already on the stack.
type Engine struct {
	src       HeapSource
	heapListp unsafe.Pointer // address of the prologue header; offset 0

	buckets [2]uint32 // seg_list[0] (size 2), seg_list[1] (size 4); 0 = none
	bstRoot uint32     // seg_root; 0 = none

	epilogue unsafe.Pointer // address of the current epilogue header
}

// initialWords is the number of words requested from src on NewEngine,
// chosen so the first real allocation almost never needs a fresh sbrk call.
const initialWords = 1024

// NewEngine establishes the prologue/epilogue sentinels and performs the
// initial heap extension (spec's init()).
func NewEngine(src HeapSource) (*Engine, error) {
	// prologue (offset 0) + epilogue (offset 1); extendHeap below grows the
	// real initial free region and relocates the epilogue past it.
	p, err := src.Sbrk(2 * wordSize)
	if err != nil {
		return nil, fmt.Errorf("heap: init sbrk failed: %w", err)
	}

	e := &Engine{src: src, heapListp: p}

	prologue := blockPtr(p)
	writeWord(unsafe.Pointer(prologue), allocBit)
	epilogue := blockPtr(addWords(p, 1))
	writeWord(unsafe.Pointer(epilogue), allocBit)
	e.epilogue = unsafe.Pointer(epilogue)

	if _, err := e.extendHeap(initialWords); err != nil {
		return nil, err
	}
	return e, nil
}

// offsetOf converts an address into a 32-bit word offset from heapListp. The
// prologue itself (offset 0) is never a real link target, so 0 doubles as
// "nil".
func (e *Engine) offsetOf(b blockPtr) uint32 {
	if b == nil {
		return 0
	}
	return uint32((uintptr(unsafe.Pointer(b)) - uintptr(e.heapListp)) / wordSize)
}

// blockAt is the inverse of offsetOf; 0 maps to nil.
func (e *Engine) blockAt(off uint32) blockPtr {
	if off == 0 {
		return nil
	}
	return blockPtr(addWords(e.heapListp, int(off)))
}

// --- link field accessors (payload reuse in free blocks) ---

func pred(b blockPtr) uint32    { return readWord(addWords(unsafe.Pointer(b), 1)) }
func setPred(b blockPtr, v uint32) { writeWord(addWords(unsafe.Pointer(b), 1), v) }
func succ(b blockPtr) uint32    { return readWord(addWords(unsafe.Pointer(b), 2)) }
func setSucc(b blockPtr, v uint32) { writeWord(addWords(unsafe.Pointer(b), 2), v) }
func left(b blockPtr) uint32    { return readWord(addWords(unsafe.Pointer(b), 3)) }
func setLeft(b blockPtr, v uint32) { writeWord(addWords(unsafe.Pointer(b), 3), v) }
func right(b blockPtr) uint32   { return readWord(addWords(unsafe.Pointer(b), 4)) }
func setRight(b blockPtr, v uint32) { writeWord(addWords(unsafe.Pointer(b), 4), v) }

// clearLinks zeroes the link words of a freshly-freed or freshly-split
// block before it is handed to the index, so stale payload bytes never leak
// into them: pred/succ always, left/right only when the block's size (>= 4)
// leaves room for them.
func clearLinks(b blockPtr) {
	setPred(b, 0)
	setSucc(b, 0)
	if sizeOf(b) >= 4 {
		setLeft(b, 0)
		setRight(b, 0)
	}
}
