package utils

import (
	"sync"
)

// BATCH_SIZE matches the DynamoDB batch write ceiling so one drained
// buffer maps to one storage request.
const BATCH_SIZE = 25

// BatchBuffer accumulates items from concurrent producers until a
// consumer drains them in one slice. All methods are safe for
// concurrent use.
type BatchBuffer[T any] struct {
	mu     sync.Mutex
	buffer []T
}

func NewBatchBuffer[T any]() *BatchBuffer[T] {
	return &BatchBuffer[T]{
		buffer: make([]T, 0, BATCH_SIZE),
	}
}

func (b *BatchBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = append(b.buffer, item)
}

func (b *BatchBuffer[T]) AddAll(items []T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = append(b.buffer, items...)
}

// Drain returns everything buffered so far and resets the buffer.
// Returns nil when empty.
func (b *BatchBuffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffer) == 0 {
		return nil
	}

	batch := b.buffer
	b.buffer = make([]T, 0, BATCH_SIZE)
	return batch
}

func (b *BatchBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
