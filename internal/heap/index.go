package heap

// Free-block index: two fixed LIFO buckets for sizes {2,4}, and a size-keyed
// BST for sizes >= 6 whose nodes each head an address-ordered sibling list.
//
// The sibling lists are kept address-sorted ascending (head = lowest
// address) rather than literally prepending every insertion to the head.
// spec.md's own design notes permit this: "the observable contract (head is
// BST node, strictly increasing addresses, best-fit returns lowest address)
// is preserved" regardless of the exact linked-list mechanics, and a
// strict head-prepend can't satisfy that contract unless frees always
// happen in descending address order, which the public API never
// guarantees (see Scenario 3: three equal-size free blocks created and
// freed in arbitrary order must still yield the lowest address on the next
// fit of that size). Address-sorted insertion is the only implementation of
// "head is always lowest address" that holds regardless of free order.

const smallTierMax = 4 // T in spec.md: sizes <= 4 live in small buckets

// indexOf maps a small-tier size to its bucket: 2 -> 0, 4 -> 1.
func indexOf(size int) int {
	i := (size - 2) / 2
	if i < 0 {
		i = 0
	}
	return i
}

// insert adds a free block to whichever tier its size belongs to.
func (e *Engine) insert(b blockPtr) {
	clearLinks(b)
	size := sizeOf(b)
	if size <= smallTierMax {
		e.bucketInsert(indexOf(size), b)
		return
	}
	e.bstRoot = e.bstInsert(e.bstRoot, e.offsetOf(b))
}

// take removes a specific free block from the index.
func (e *Engine) take(b blockPtr) {
	size := sizeOf(b)
	if size <= smallTierMax {
		e.bucketDelete(indexOf(size), b)
		return
	}
	e.bstRoot = e.bstTake(e.bstRoot, e.offsetOf(b))
}

// --- small buckets (LIFO) ---

func (e *Engine) bucketInsert(idx int, b blockPtr) {
	head := e.buckets[idx]
	setPred(b, 0)
	setSucc(b, head)
	if head != 0 {
		setPred(e.blockAt(head), e.offsetOf(b))
	}
	e.buckets[idx] = e.offsetOf(b)
}

func (e *Engine) bucketDelete(idx int, b blockPtr) {
	p := pred(b)
	s := succ(b)
	if p != 0 {
		setSucc(e.blockAt(p), s)
	} else {
		e.buckets[idx] = s
	}
	if s != 0 {
		setPred(e.blockAt(s), p)
	}
}

// smallFindFit linearly scans buckets from indexOf(w) upward for the first
// qualifying block.
func (e *Engine) smallFindFit(w int) blockPtr {
	start := indexOf(w)
	for i := start; i < 2; i++ {
		if e.buckets[i] != 0 {
			return e.blockAt(e.buckets[i])
		}
	}
	return nil
}

// --- size BST over address-ordered sibling lists ---

func (e *Engine) sizeAt(off uint32) int { return sizeOf(e.blockAt(off)) }

// bstInsert descends by size, inserting b (given as an offset) either as a
// new tree node or into the address-ordered sibling list of an existing
// equal-size node. Returns the (possibly changed) subtree root.
func (e *Engine) bstInsert(root, b uint32) uint32 {
	if root == 0 {
		return b // leaf: links already cleared by insert()
	}
	rs := e.sizeAt(root)
	bs := e.sizeAt(b)
	switch {
	case bs < rs:
		setLeft(e.blockAt(root), e.bstInsert(left(e.blockAt(root)), b))
		return root
	case bs > rs:
		setRight(e.blockAt(root), e.bstInsert(right(e.blockAt(root)), b))
		return root
	default:
		return e.siblingInsert(root, b)
	}
}

// siblingInsert inserts b into the address-ordered list headed by head and
// returns the (possibly new) head.
func (e *Engine) siblingInsert(head, b uint32) uint32 {
	hb, bb := e.blockAt(head), e.blockAt(b)
	if b < head {
		// b becomes the new head: inherit the tree children, old head keeps
		// none (only the head carries meaningful left/right).
		setLeft(bb, left(hb))
		setRight(bb, right(hb))
		setLeft(hb, 0)
		setRight(hb, 0)
		setPred(bb, 0)
		setSucc(bb, head)
		setPred(hb, b)
		return b
	}
	cur := head
	for succ(e.blockAt(cur)) != 0 && succ(e.blockAt(cur)) < b {
		cur = succ(e.blockAt(cur))
	}
	curB := e.blockAt(cur)
	nxt := succ(curB)
	setSucc(curB, b)
	setPred(bb, cur)
	setSucc(bb, nxt)
	if nxt != 0 {
		setPred(e.blockAt(nxt), b)
	}
	return head
}

// bstTake removes b (an offset) from the subtree rooted at root, returning
// the (possibly changed) subtree root.
func (e *Engine) bstTake(root, b uint32) uint32 {
	rs := e.sizeAt(root)
	bs := e.sizeAt(b)
	switch {
	case bs < rs:
		setLeft(e.blockAt(root), e.bstTake(left(e.blockAt(root)), b))
		return root
	case bs > rs:
		setRight(e.blockAt(root), e.bstTake(right(e.blockAt(root)), b))
		return root
	}
	if root != b {
		// b is a non-head sibling: splice it out directly.
		e.siblingDelete(b)
		return root
	}
	rootB := e.blockAt(root)
	if s := succ(rootB); s != 0 {
		sB := e.blockAt(s)
		setLeft(sB, left(rootB))
		setRight(sB, right(rootB))
		setPred(sB, 0)
		return s
	}
	// No siblings left: classic BST node deletion.
	l, r := left(rootB), right(rootB)
	if l == 0 {
		return r
	}
	if r == 0 {
		return l
	}
	minNode, newRight := e.bstDeleteMin(r)
	minB := e.blockAt(minNode)
	setLeft(minB, l)
	setRight(minB, newRight)
	return minNode
}

// bstDeleteMin removes and returns the smallest-size node of the subtree
// rooted at root, along with the subtree's new root.
func (e *Engine) bstDeleteMin(root uint32) (minNode, newRoot uint32) {
	rootB := e.blockAt(root)
	if left(rootB) == 0 {
		return root, right(rootB)
	}
	m, newLeft := e.bstDeleteMin(left(rootB))
	setLeft(rootB, newLeft)
	return m, root
}

// siblingDelete splices a non-head sibling (pred != 0) out of its list.
func (e *Engine) siblingDelete(b uint32) {
	bB := e.blockAt(b)
	p, s := pred(bB), succ(bB)
	setSucc(e.blockAt(p), s)
	if s != 0 {
		setPred(e.blockAt(s), p)
	}
}

// ceiling returns the offset of the size-BST node whose size is the
// smallest one >= w, or 0 if none qualifies.
func (e *Engine) ceiling(root uint32, w int) uint32 {
	if root == 0 {
		return 0
	}
	sz := e.sizeAt(root)
	if sz == w {
		return root
	}
	if sz < w {
		return e.ceiling(right(e.blockAt(root)), w)
	}
	r := e.ceiling(left(e.blockAt(root)), w)
	if r == 0 {
		return root
	}
	return r
}

// findFit returns the best-fit (by size, lowest address within that size)
// free block for a request of w payload words, or nil.
func (e *Engine) findFit(w int) blockPtr {
	if w <= smallTierMax {
		if b := e.smallFindFit(w); b != nil {
			return b
		}
	}
	if off := e.ceiling(e.bstRoot, w); off != 0 {
		return e.blockAt(off) // head of its sibling list: lowest address
	}
	return nil
}
