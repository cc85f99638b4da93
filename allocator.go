// Package malloc implements a classical malloc/free/realloc/calloc
// allocator over a caller-supplied, contiguous, grow-only heap. It keeps a
// compact boundary-tagged block layout and a hybrid free-block index (small
// LIFO buckets plus a size-ordered BST of address-ordered sibling lists),
// reusing freed payload bytes as link storage so the index costs no extra
// memory of its own.
package malloc

import (
	"io"
	"unsafe"

	"github.com/mindbergh/malloc/internal/heap"
)

// HeapSource is the external primitive the allocator grows itself through:
// a single synchronous growth call plus read-only bounds queries. See
// package sbrk for the reference implementation.
type HeapSource = heap.HeapSource

// Allocator is a malloc/free/realloc/calloc implementation bound to one
// HeapSource. It is not safe for concurrent use: exactly one goroutine may
// call into a given Allocator at a time.
type Allocator struct {
	e *heap.Engine
}

// New constructs an Allocator over src, establishing the heap's internal
// sentinels and performing the initial extension.
func New(src HeapSource) (*Allocator, error) {
	e, err := heap.NewEngine(src)
	if err != nil {
		return nil, err
	}
	return &Allocator{e: e}, nil
}

// Allocate reserves n bytes and returns a pointer to the first byte, or nil
// if n <= 0. Returns ErrOutOfMemory if the heap cannot be grown far enough.
func (a *Allocator) Allocate(n int) (unsafe.Pointer, error) {
	return a.e.Allocate(n)
}

// Free releases the block at p. p must have been returned by Allocate,
// Reallocate, or Callocate on this Allocator and not already freed. Freeing
// nil is a no-op.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	a.e.Free(p)
}

// Reallocate resizes the block at p to hold n bytes, preserving its
// contents up to the smaller of the old and new sizes. p == nil behaves
// like Allocate(n); n <= 0 behaves like Free(p) followed by returning nil.
// The returned pointer may differ from p if the payload had to move.
func (a *Allocator) Reallocate(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	return a.e.Reallocate(p, n)
}

// Callocate reserves space for k elements of n bytes each, zero-initialized,
// and returns a pointer to the first byte. Returns ErrOutOfMemory if the
// heap cannot be grown far enough.
func (a *Allocator) Callocate(k, n int) (unsafe.Pointer, error) {
	if k <= 0 || n <= 0 {
		return nil, nil
	}
	total := k * n
	p, err := a.Allocate(total)
	if err != nil || p == nil {
		return p, err
	}
	// Zero the whole placed payload, not just k*n: a block pulled from the
	// free index still carries stale pred/succ/left/right bytes past k*n.
	zero(p, len(a.Bytes(p)))
	return p, nil
}

// CheckHeap walks the entire heap, validating each block's layout (size
// minimum and parity, alignment, header/footer agreement, prev_free bit, no
// adjacent free pair) and that the free-block index holds exactly the free
// blocks found by the walk. It does not check the size-BST's ordering, the
// sizes held by each small bucket, or the address order of sibling lists.
// It returns nil on success and a *StructuralViolation on the first failure
// found (which also carries every other violation found in the same pass).
// If verbose is true, a line-per-block diagnostic report (word offset, size,
// alloc/free state, and a checksum of free-block contents) is written to w;
// w is ignored when verbose is false.
func (a *Allocator) CheckHeap(verbose bool, w io.Writer) error {
	if !verbose {
		w = nil
	}
	return violationFrom(a.e.Check(w))
}

// Bytes returns a []byte view over exactly the usable payload of the block
// at p (sizeof(block_of_payload(p)) words). It is a convenience accessor
// for tests and callers that want to read or write through a slice instead
// of unsafe.Pointer arithmetic; it adds no allocator semantics.
func (a *Allocator) Bytes(p unsafe.Pointer) []byte {
	return a.e.PayloadBytes(p)
}

func zero(p unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}
