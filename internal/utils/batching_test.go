package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchBuffer_AddAndDrain(t *testing.T) {
	buffer := NewBatchBuffer[int]()
	buffer.Add(1)
	buffer.Add(2)
	buffer.AddAll([]int{3, 4})

	assert.Equal(t, 4, buffer.Size())
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, buffer.Drain())
	assert.Equal(t, 0, buffer.Size())
}

func TestBatchBuffer_DrainEmptyReturnsNil(t *testing.T) {
	buffer := NewBatchBuffer[string]()
	assert.Nil(t, buffer.Drain())
}

func TestBatchBuffer_ConcurrentAdds(t *testing.T) {
	buffer := NewBatchBuffer[int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buffer.Add(n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, buffer.Drain(), 100)
}
