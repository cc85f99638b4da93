package sbrk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaGrowth(t *testing.T) {
	a := NewArena(64)
	assert.Equal(t, 0, a.Size())

	p1, err := a.Sbrk(16)
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, 16, a.Size())

	p2, err := a.Sbrk(8)
	require.NoError(t, err)
	assert.Equal(t, uintptr(16), uintptr(p2)-uintptr(p1))
	assert.Equal(t, 24, a.Size())
}

func TestArenaNeverRelocates(t *testing.T) {
	a := NewArena(1024)
	p1, err := a.Sbrk(32)
	require.NoError(t, err)
	lo := a.Lo()

	for i := 0; i < 10; i++ {
		_, err := a.Sbrk(32)
		require.NoError(t, err)
	}

	assert.Equal(t, lo, a.Lo(), "Lo() must never move")
	assert.Equal(t, uintptr(p1), lo, "the first address handed out must still equal Lo()")
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(16)
	_, err := a.Sbrk(16)
	require.NoError(t, err)

	_, err = a.Sbrk(1)
	assert.Error(t, err)
	assert.Equal(t, 16, a.Size(), "a failed Sbrk must not change Size")
}

func TestArenaBoundsConsistency(t *testing.T) {
	a := NewArena(256)
	_, err := a.Sbrk(100)
	require.NoError(t, err)
	assert.Equal(t, a.Hi()-a.Lo(), uintptr(a.Size()))
}

func TestNewArenaWithBuffer(t *testing.T) {
	buf := make([]byte, 0, 128)
	a := NewArenaWithBuffer(buf)
	assert.Equal(t, 0, a.Size())
	p, err := a.Sbrk(64)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 64, a.Size())
}
