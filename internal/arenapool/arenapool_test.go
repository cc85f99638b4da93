package arenapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsRequestedLength(t *testing.T) {
	for _, n := range []int{1, 4095, 4096, 4097, 1 << 20} {
		buf := Get(n)
		assert.Len(t, buf, n)
		Put(buf)
	}
}

func TestGetBeyondMaxClassFallsBackToDirectAllocation(t *testing.T) {
	buf := Get(maxPoolSize + 1)
	assert.Len(t, buf, maxPoolSize+1)
	// Put on an oversized buffer must be a harmless no-op.
	Put(buf)
}

func TestPutGetRoundTripReusesBacking(t *testing.T) {
	const n = 1 << 16
	first := Get(n)
	first[0] = 0xAB
	Put(first)

	second := Get(n)
	assert.Len(t, second, n)
	// Not asserting same backing array: sync.Pool may or may not hand the
	// same slice back, and that's an implementation detail, not a contract.
}

func TestClassIndexMonotonic(t *testing.T) {
	prev := -1
	for _, n := range []int{minPoolSize, minPoolSize + 1, minPoolSize * 2, minPoolSize * 4} {
		i := classIndex(n)
		assert.GreaterOrEqual(t, i, prev)
		prev = i
	}
	assert.Equal(t, -1, classIndex(maxPoolSize+1))
	assert.Equal(t, 0, classIndex(1))
	assert.Equal(t, 0, classIndex(minPoolSize))
}
