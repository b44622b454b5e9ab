package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatcher(t *testing.T) {
	b := NewBatcher(3)

	assert.False(t, b.Add(1))
	assert.False(t, b.Add(2))
	assert.True(t, b.Add(3))
	assert.Equal(t, []int{1, 2, 3}, b.Take())
	assert.Equal(t, 0, b.Len())

	assert.False(t, b.Add(4))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []int{4}, b.Take())
}

func TestBatcherTakeDoesNotAlias(t *testing.T) {
	b := NewBatcher(2)
	b.Add(1)
	b.Add(2)
	first := b.Take()
	b.Add(3)
	b.Add(4)
	assert.Equal(t, []int{1, 2}, first)
}

func TestBatcherRejectsZeroSize(t *testing.T) {
	assert.Panics(t, func() { NewBatcher(0) })
}
