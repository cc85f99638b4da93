// Command mallocbench drives a fixed allocate/free/realloc workload against
// an Allocator backed by sbrk.Arena and reports elapsed time. It is a
// manual profiling aid, not a general CLI: its only flags are the arena
// size, the operation count, and the random seed.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/mindbergh/malloc"
	"github.com/mindbergh/malloc/sbrk"
)

func main() {
	arenaMB := flag.Int("arena-mb", 64, "arena size in megabytes")
	ops := flag.Int("ops", 200000, "number of allocate/free/realloc operations")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	a, err := malloc.New(sbrk.NewArena(*arenaMB << 20))
	if err != nil {
		fmt.Fprintln(os.Stderr, "new allocator:", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	live := make([]unsafe.Pointer, 0, 1024)

	start := time.Now()
	for i := 0; i < *ops; i++ {
		switch {
		case len(live) == 0 || rng.Intn(3) != 0:
			n := 1 + rng.Intn(256)
			p, err := a.Allocate(n)
			if err != nil {
				continue // arena exhausted; let later frees make room
			}
			live = append(live, p)
		case rng.Intn(2) == 0:
			idx := rng.Intn(len(live))
			np, err := a.Reallocate(live[idx], 1+rng.Intn(256))
			if err != nil {
				continue // arena exhausted; the old block stays valid
			}
			live[idx] = np
		default:
			idx := rng.Intn(len(live))
			p := live[idx]
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			a.Free(p)
		}
	}
	elapsed := time.Since(start)

	if err := a.CheckHeap(false, nil); err != nil {
		fmt.Fprintln(os.Stderr, "heap check failed:", err)
		os.Exit(1)
	}
	fmt.Printf("%d ops in %s (%.0f ops/sec), %d blocks still live\n",
		*ops, elapsed, float64(*ops)/elapsed.Seconds(), len(live))
}
