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

// Package slab implements a fixed-block arena. Records live in chunks of a
// fixed capacity, chunks are addressed by a stable ChunkID and are recycled
// through a free list instead of being handed back to the runtime.
package slab

import (
	"errors"
	"sync"
)

// ChunkID addresses one chunk inside a Recycler.
type ChunkID int32

// NilChunk is the "no chunk" value.
const NilChunk ChunkID = -1

// ErrExhausted is returned when the chunk budget of a Recycler is used up.
var ErrExhausted = errors.New("slab: chunk budget exhausted")

// Recycler owns the backing memory of every chunk it ever handed out.
// Vacated chunks go back to its free list and are reused before any new
// chunk is carved, so memory moves between lists without fragmenting.
type Recycler[T any] struct {
	mu        sync.Mutex
	chunkSize int
	maxChunks int // 0 means no budget

	chunks [][]T
	free   []ChunkID
}

// NewRecycler creates a Recycler of chunks holding chunkSize records.
// At most maxChunks chunks are ever carved; 0 disables the limit.
func NewRecycler[T any](chunkSize, maxChunks int) *Recycler[T] {
	if chunkSize <= 0 {
		panic("slab: chunk size must be positive")
	}
	return &Recycler[T]{chunkSize: chunkSize, maxChunks: maxChunks}
}

// ChunkSize returns the record capacity of every chunk.
func (r *Recycler[T]) ChunkSize() int { return r.chunkSize }

// Get hands out a zeroed chunk, preferring the free list.
func (r *Recycler[T]) Get() (ChunkID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		id := r.free[n-1]
		r.free = r.free[:n-1]
		return id, nil
	}
	if r.maxChunks > 0 && len(r.chunks) >= r.maxChunks {
		return NilChunk, ErrExhausted
	}
	r.chunks = append(r.chunks, make([]T, r.chunkSize))
	return ChunkID(len(r.chunks) - 1), nil
}

// Put returns a chunk to the free list. The chunk must not be used by the
// caller afterwards.
func (r *Recycler[T]) Put(id ChunkID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.chunks[id])
	r.free = append(r.free, id)
}

// Chunk returns the records of a chunk. The inner array never moves, but
// the caller is responsible for synchronizing access to the records.
func (r *Recycler[T]) Chunk(id ChunkID) []T {
	r.mu.Lock()
	c := r.chunks[id]
	r.mu.Unlock()
	return c
}

// Stats reports how many chunks were carved and how many are free.
func (r *Recycler[T]) Stats() (allocated, free int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks), len(r.free)
}
