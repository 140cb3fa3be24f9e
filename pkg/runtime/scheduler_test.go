package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferAndDrain(t *testing.T) {
	s := NewQueueScheduler()
	var order []int
	s.Defer(func() { order = append(order, 1) })
	s.Defer(func() { order = append(order, 2) })

	assert.Empty(t, order, "nothing runs before a drain")
	assert.True(t, s.Drain())
	assert.Equal(t, []int{1, 2}, order, "FIFO")
	assert.False(t, s.Drain(), "nothing left")
}

func TestTasksDeferredWhileDrainingRunInSameDrain(t *testing.T) {
	s := NewQueueScheduler()
	ran := false
	s.Defer(func() {
		s.Defer(func() { ran = true })
	})
	s.Drain()
	assert.True(t, ran)
}

func TestCancel(t *testing.T) {
	s := NewQueueScheduler()
	ran := false
	cancel := s.Defer(func() { ran = true })
	cancel()
	assert.False(t, s.Drain(), "a cancelled task counts as no work")
	assert.False(t, ran)

	// Cancelling after the run is a no-op.
	cancel2 := s.Defer(func() { ran = true })
	s.Drain()
	cancel2()
	assert.True(t, ran)
}

func TestReset(t *testing.T) {
	s := NewQueueScheduler()
	ran := false
	s.Defer(func() { ran = true })
	s.Reset()
	assert.False(t, s.Drain())
	assert.False(t, ran)
}
