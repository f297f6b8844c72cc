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

package slab

import "iter"

// List is an ordered sequence of chunks drawn from a shared Recycler.
// Records are packed: every chunk but the last is full, so a flat logical
// index maps to (index / chunkSize, index % chunkSize). The first chunk is
// kept even when empty; any other chunk is returned to the Recycler as
// soon as it empties.
//
// Pointers returned by At and All stay valid only until the next
// structural change (Push, SwapRemove, Release) of the same List.
type List[T any] struct {
	rec    *Recycler[T]
	chunks []ChunkID
	length int
}

// NewList creates an empty List backed by rec. No chunk is taken until
// the first Push.
func NewList[T any](rec *Recycler[T]) List[T] {
	return List[T]{rec: rec}
}

// Len returns the number of records.
func (l *List[T]) Len() int { return l.length }

// Chunks returns the number of chunks linked into the list.
func (l *List[T]) Chunks() int { return len(l.chunks) }

// ChunkLen returns how many records chunk c holds.
func (l *List[T]) ChunkLen(c int) int {
	size := l.rec.ChunkSize()
	if c < len(l.chunks)-1 {
		return size
	}
	return l.length - c*size
}

// Loc maps a flat index to its (chunk, slot) position.
func (l *List[T]) Loc(i int) (chunk, slot int) {
	size := l.rec.ChunkSize()
	return i / size, i % size
}

// Push copies v into the last chunk, linking a new chunk first when every
// chunk is full. The only possible error is the Recycler running out of
// budget.
func (l *List[T]) Push(v T) (int, error) {
	size := l.rec.ChunkSize()
	if l.length == len(l.chunks)*size {
		id, err := l.rec.Get()
		if err != nil {
			return -1, err
		}
		l.chunks = append(l.chunks, id)
	}
	i := l.length
	c, slot := l.Loc(i)
	l.rec.Chunk(l.chunks[c])[slot] = v
	l.length++
	return i, nil
}

// At returns the record at flat index i.
func (l *List[T]) At(i int) *T {
	if i < 0 || i >= l.length {
		panic("slab: index out of range")
	}
	c, slot := l.Loc(i)
	return &l.rec.Chunk(l.chunks[c])[slot]
}

// Index returns the flat index of the first record matching pred, or -1.
func (l *List[T]) Index(pred func(*T) bool) int {
	for i, v := range l.All() {
		if pred(v) {
			return i
		}
	}
	return -1
}

// SwapRemove deletes the record at i by overwriting it with the logical
// last record and shrinking the list. An emptied trailing chunk, other
// than the first one, goes back to the Recycler.
func (l *List[T]) SwapRemove(i int) T {
	removed := *l.At(i)
	last := l.length - 1
	if i != last {
		*l.At(i) = *l.At(last)
	}
	var zero T
	*l.At(last) = zero
	l.length--

	size := l.rec.ChunkSize()
	if n := len(l.chunks); n > 1 && l.length == (n-1)*size {
		l.rec.Put(l.chunks[n-1])
		l.chunks = l.chunks[:n-1]
	}
	return removed
}

// All iterates over the records in flat-index order. The sequence is
// finite and can be ranged over again from the start.
func (l *List[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		i := 0
		for _, id := range l.chunks {
			chunk := l.rec.Chunk(id)
			for s := range chunk {
				if i >= l.length {
					return
				}
				if !yield(i, &chunk[s]) {
					return
				}
				i++
			}
		}
	}
}

// Values appends a copy of every record to dst.
func (l *List[T]) Values(dst []T) []T {
	for _, v := range l.All() {
		dst = append(dst, *v)
	}
	return dst
}

// Release hands every chunk back to the Recycler and empties the list.
func (l *List[T]) Release() {
	for _, id := range l.chunks {
		l.rec.Put(id)
	}
	l.chunks = nil
	l.length = 0
}
