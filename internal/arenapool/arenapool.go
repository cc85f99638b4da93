// Copyright 2024 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arenapool pools the backing byte slices behind sbrk.Arena values
// by capacity class, so property tests that construct and discard thousands
// of independent arenas in one run don't pay full allocation cost for each.
package arenapool

import (
	"math/bits"
	"sync"
)

const (
	minPoolSize = 4 << 10  // 4KB
	maxPoolSize = 1 << 30  // 1GB; Get falls back to a direct make above this
)

type classPool struct {
	sync.Pool
	size int
}

var pools []*classPool

func init() {
	for sz := minPoolSize; sz <= maxPoolSize; sz <<= 1 {
		p := &classPool{size: sz}
		p.New = func() interface{} {
			b := make([]byte, p.size)
			return &b
		}
		pools = append(pools, p)
	}
}

// classIndex returns the index of the smallest pool whose size is >= want,
// or -1 if want exceeds every pooled class.
func classIndex(want int) int {
	if want <= minPoolSize {
		return 0
	}
	i := bits.Len(uint(want-1)) - bits.Len(uint(minPoolSize)) + 1
	if i < 0 || i >= len(pools) {
		return -1
	}
	return i
}

// Get returns a []byte with len == capacity, drawn from the pool when a
// class fits and falling back to a fresh allocation otherwise. Contents are
// not zeroed: a buffer reused as the backing store of a fresh sbrk.Arena is
// overwritten by the engine before it is read.
func Get(capacity int) []byte {
	i := classIndex(capacity)
	if i < 0 {
		return make([]byte, capacity)
	}
	bp := pools[i].Get().(*[]byte)
	return (*bp)[:capacity]
}

// Put returns buf to its capacity class's pool. buf must have been obtained
// from Get with the same capacity it is returned at; callers must not use
// buf after calling Put.
func Put(buf []byte) {
	i := classIndex(cap(buf))
	if i < 0 {
		return
	}
	b := buf[:cap(buf)]
	pools[i].Put(&b)
}
