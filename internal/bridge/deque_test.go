package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeFIFOBoarding(t *testing.T) {
	d := New(4)
	require.NoError(t, d.PushBack(Entry{ActorID: 1, Units: 1}))
	require.NoError(t, d.PushBack(Entry{ActorID: 2, Units: 1}))
	require.NoError(t, d.PushBack(Entry{ActorID: 3, Units: 2}))
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 4, d.LoadUnits())

	front, ok := d.Front()
	require.True(t, ok)
	assert.Equal(t, 1, front.ActorID)

	e, ok := d.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, e.ActorID)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 3, d.LoadUnits())
}

func TestDequeLIFOEviction(t *testing.T) {
	d := New(4)
	require.NoError(t, d.PushBack(Entry{ActorID: 1}))
	require.NoError(t, d.PushBack(Entry{ActorID: 2}))
	require.NoError(t, d.PushBack(Entry{ActorID: 3}))

	var order []int
	for !d.Empty() {
		e, ok := d.PopBack()
		require.True(t, ok)
		order = append(order, e.ActorID)
	}
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestDequeDisembarkPushFrontPopBack(t *testing.T) {
	d := New(4)
	require.NoError(t, d.PushBack(Entry{ActorID: 1}))

	require.NoError(t, d.PushFront(Entry{ActorID: 42}))
	back, ok := d.Back()
	require.True(t, ok)
	assert.Equal(t, 1, back.ActorID)

	e, ok := d.PopBack()
	require.True(t, ok)
	assert.Equal(t, 1, e.ActorID)

	e, ok = d.PopBack()
	require.True(t, ok)
	assert.Equal(t, 42, e.ActorID)
	assert.True(t, d.Empty())
}

func TestDequeCapacityExceeded(t *testing.T) {
	d := New(2)
	require.NoError(t, d.PushBack(Entry{ActorID: 1}))
	require.NoError(t, d.PushBack(Entry{ActorID: 2}))
	assert.ErrorIs(t, d.PushBack(Entry{ActorID: 3}), ErrCapacityExceeded)
	assert.ErrorIs(t, d.PushFront(Entry{ActorID: 4}), ErrCapacityExceeded)
}

func TestDequeBackPointerMutatesInPlace(t *testing.T) {
	d := New(4)
	require.NoError(t, d.PushBack(Entry{ActorID: 7}))

	back, ok := d.Back()
	require.True(t, ok)
	back.Evicting = true

	back2, ok := d.Back()
	require.True(t, ok)
	assert.True(t, back2.Evicting)
}

func TestDequeWrapsAroundRing(t *testing.T) {
	d := New(3)
	require.NoError(t, d.PushBack(Entry{ActorID: 1}))
	require.NoError(t, d.PushBack(Entry{ActorID: 2}))
	_, _ = d.PopFront()
	require.NoError(t, d.PushBack(Entry{ActorID: 3}))
	require.NoError(t, d.PushBack(Entry{ActorID: 4}))

	var got []int
	for !d.Empty() {
		e, _ := d.PopFront()
		got = append(got, e.ActorID)
	}
	assert.Equal(t, []int{2, 3, 4}, got)
}
