// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package queue provides a fixed-capacity FIFO shared between goroutines.
package queue

import "sync"

// Queue is a ring buffer guarded by a mutex and two condition variables.
// Push blocks while the queue is full, Pull blocks while it is empty and
// TryPull never blocks.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond

	items []T
	head  int
	tail  int
	count int

	closed bool
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	q := &Queue[T]{items: make([]T, capacity)}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

// Push copies v into the tail slot, waiting for room while the queue is
// full. It returns false if the queue was closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == len(q.items) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}
	q.items[q.tail] = v
	q.tail = (q.tail + 1) % len(q.items)
	q.count++
	q.notEmpty.Signal()
	return true
}

// Pull removes the head item, waiting while the queue is empty.
// After Close it keeps returning the remaining items, then ok=false.
func (q *Queue[T]) Pull() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	return q.pop()
}

// TryPull removes the head item if there is one.
func (q *Queue[T]) TryPull() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// pop must be called with q.mu held.
func (q *Queue[T]) pop() (v T, ok bool) {
	if q.count == 0 {
		return v, false
	}
	var zero T
	v = q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	q.notFull.Signal()
	return v, true
}

// Close wakes every waiter. Pushes fail from now on.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int { return len(q.items) }
