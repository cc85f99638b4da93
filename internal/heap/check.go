package heap

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/cloudwego/gopkg/hash/xfnv"
)

// Violation describes a single structural inconsistency found by Check. The
// checker collects as many as it can find in one pass rather than stopping
// at the first.
type Violation struct {
	Offset uint32
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("offset %d: %s", v.Offset, v.Detail)
}

// Check walks the heap from the first real block to the epilogue, validating
// every invariant that doesn't require comparing against index membership,
// then cross-checks the free-block index itself. It never mutates engine
// state.
//
// If w is non-nil, Check also writes a line per visited block (word offset,
// size, alloc/free, and for free blocks a content checksum) — useful for
// diagnosing a reported violation by hand.
func (e *Engine) Check(w io.Writer) []Violation {
	var vs []Violation
	note := func(off uint32, format string, args ...interface{}) {
		vs = append(vs, Violation{Offset: off, Detail: fmt.Sprintf(format, args...)})
	}

	freeByTraversal := make(map[uint32]bool)

	var diag *diagWriter
	if w != nil {
		diag = newDiagWriter()
	}

	prologue := blockPtr(e.heapListp)
	if h := readWord(unsafe.Pointer(prologue)); h != allocBit {
		note(0, "prologue header corrupt: got %#x, want %#x (size 0, allocated, prev_free clear)", h, allocBit)
	}

	b := e.blockAt(1) // first real block: where the bootstrap epilogue used to sit
	epi := blockPtr(e.epilogue)
	prevWasFree := false
	for b != epi {
		off := e.offsetOf(b)
		size := sizeOf(b)
		free := isFree(b)

		if size < 2 {
			note(off, "payload size %d below the 2-word minimum", size)
		}
		if addr := uintptr(payloadOf(b)); addr%8 != 0 {
			note(off, "payload address %#x is not 8-byte aligned", addr)
		}
		if free && size%2 != 0 {
			note(off, "free block has odd size %d", size)
		}
		if !free && size%2 == 0 {
			note(off, "allocated block has even size %d", size)
		}
		if prevIsFree(b) != prevWasFree {
			note(off, "prev_free bit is %v but the preceding block's actual state is %v", prevIsFree(b), prevWasFree)
		}
		if free {
			h := readWord(unsafe.Pointer(b))
			f := readWord(unsafe.Pointer(footerPtr(b, size)))
			if h != f {
				note(off, "header/footer mismatch: %#x vs %#x", h, f)
			}
			if prevWasFree {
				note(off, "adjacent free blocks escaped coalescing")
			}
			freeByTraversal[off] = true
			if diag != nil {
				sum := xfnv.Hash(unsafe.Slice((*byte)(payloadOf(b)), size*wordSize))
				diag.WriteString(fmt.Sprintf("free   off=%d size=%d checksum=%#x\n", off, size, sum))
			}
		} else if diag != nil {
			diag.WriteString(fmt.Sprintf("alloc  off=%d size=%d\n", off, size))
		}

		prevWasFree = free
		b = nextBlock(b)
	}

	e.checkIndex(freeByTraversal, note)
	if diag != nil {
		diag.Flush(w)
	}
	return vs
}

// checkIndex walks every block reachable from the index (both small buckets
// and the size-BST's sibling lists) and compares that set against the one
// found by the linear structural traversal. A count mismatch is recorded as
// a single soft diagnostic rather than one violation per missing/extra
// block — the index and the heap can only drift apart as a symptom of a bug
// already reported above, so this is a corroborating signal, not an
// independent source of truth, and is never itself fatal.
func (e *Engine) checkIndex(freeByTraversal map[uint32]bool, note func(uint32, string, ...interface{})) {
	seen := make(map[uint32]bool)
	for _, head := range e.buckets {
		for off := head; off != 0; off = succ(e.blockAt(off)) {
			seen[off] = true
		}
	}
	e.walkBST(e.bstRoot, seen)

	if len(seen) != len(freeByTraversal) {
		note(0, "index holds %d free blocks but traversal found %d (count mismatch suppressed as a soft diagnostic)", len(seen), len(freeByTraversal))
		return
	}
	for off := range seen {
		if !freeByTraversal[off] {
			note(off, "block present in index but not free in heap traversal")
		}
	}
}

func (e *Engine) walkBST(root uint32, seen map[uint32]bool) {
	if root == 0 {
		return
	}
	for off := root; off != 0; off = succ(e.blockAt(off)) {
		seen[off] = true
	}
	rb := e.blockAt(root)
	e.walkBST(left(rb), seen)
	e.walkBST(right(rb), seen)
}
