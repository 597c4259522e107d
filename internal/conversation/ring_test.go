package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPushAndOrder(t *testing.T) {
	r := NewRing[int](3)

	r.Push(1)
	r.Push(2)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.Cap())
	assert.Equal(t, []int{1, 2}, r.Items())
}

func TestRingEvictsOldestWhenFull(t *testing.T) {
	r := NewRing[int](3)
	var evicted []int
	r.OnEvict(func(v int) { evicted = append(evicted, v) })

	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, []int{1, 2}, evicted)
	assert.Equal(t, uint64(2), r.Evictions())
}

func TestRingLast(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 4; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{3, 4}, r.Last(2))
	assert.Equal(t, []int{1, 2, 3, 4}, r.Last(10))
	assert.Empty(t, r.Last(0))
}

func TestRingLastAfterWrap(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 7; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{5, 6, 7}, r.Items())
	assert.Equal(t, []int{6, 7}, r.Last(2))
}

func TestRingDropFront(t *testing.T) {
	r := NewRing[int](4)
	var evicted []int
	r.OnEvict(func(v int) { evicted = append(evicted, v) })

	for i := 1; i <= 4; i++ {
		r.Push(i)
	}
	r.DropFront(2)

	assert.Equal(t, []int{3, 4}, r.Items())
	assert.Empty(t, evicted, "DropFront must not fire the eviction callback")

	r.DropFront(10)
	assert.Zero(t, r.Len())

	r.Push(9)
	assert.Equal(t, []int{9}, r.Items())
}

func TestRingClear(t *testing.T) {
	r := NewRing[string](2)
	r.Push("a")
	r.Push("b")
	r.Clear()

	require.Zero(t, r.Len())
	assert.Empty(t, r.Items())
}

func TestRingPanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRing[int](0) })
	assert.Panics(t, func() { NewRing[int](-1) })
}
