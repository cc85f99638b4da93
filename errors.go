package malloc

import (
	"fmt"

	"github.com/mindbergh/malloc/internal/heap"
)

// ErrOutOfMemory is returned by Allocate, Reallocate, and Callocate when the
// underlying HeapSource can no longer grow far enough to satisfy a request.
var ErrOutOfMemory = heap.ErrOutOfMemory

// StructuralViolation reports the first structural inconsistency CheckHeap
// found, naming the offending block's word offset from the heap base.
type StructuralViolation struct {
	Offset uint32
	Detail string
	All    []heap.Violation // every violation found in the same pass
}

func (v *StructuralViolation) Error() string {
	return fmt.Sprintf("malloc: structural violation at offset %d: %s", v.Offset, v.Detail)
}

func violationFrom(vs []heap.Violation) error {
	if len(vs) == 0 {
		return nil
	}
	return &StructuralViolation{Offset: vs[0].Offset, Detail: vs[0].Detail, All: vs}
}
