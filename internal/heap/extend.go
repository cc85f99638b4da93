package heap

import (
	"fmt"
	"unsafe"
)

// extendHeap grows the heap by ewords words, shapes the new tail into a
// free block, relocates the epilogue past it, and coalesces with the old
// epilogue's predecessor if it was free. Returns the (possibly merged) new
// free block.
func (e *Engine) extendHeap(ewords int) (blockPtr, error) {
	p, err := e.src.Sbrk(ewords * wordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: sbrk(%d words) failed: %w", ErrOutOfMemory, ewords, err)
	}

	// p lands one word past the old epilogue; step back onto it.
	newBlock := blockPtr(addWords(p, -1))
	oldEpiPrevFree := prevIsFree(blockPtr(e.epilogue))

	size := ewords - 2
	setHeaderFields(newBlock, size, false, oldEpiPrevFree)

	epilogue := blockPtr(addWords(unsafe.Pointer(newBlock), 2+size))
	setHeaderFields(epilogue, 0, true, true)
	e.epilogue = unsafe.Pointer(epilogue)

	if oldEpiPrevFree {
		return e.coalesce(newBlock), nil
	}
	e.insert(newBlock)
	return newBlock, nil
}
