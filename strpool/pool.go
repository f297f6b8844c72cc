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

// Package strpool stores variable-length byte strings (names, passwords)
// in fixed 64-byte chunks taken from a free list, so parsing a datagram
// never allocates per string.
package strpool

import (
	"bytes"
	"sync"

	"WorldCore/internal/slab"
)

// ChunkPayload is how many string bytes fit in one chunk. A chunk is 64
// bytes in total, the rest being its next-link.
const ChunkPayload = 64 - 8

// Handle is a plain-data reference to a string inside a Pool. The zero
// Handle is the empty string. A Handle must be released exactly once.
type Handle struct {
	First slab.ChunkID
	Last  slab.ChunkID
	Count int // chunks
	Size  int // bytes
}

// Len returns the string length in bytes.
func (h Handle) Len() int { return h.Size }

// Pool is safe for concurrent use.
type Pool struct {
	mu   sync.Mutex
	rec  *slab.Recycler[byte]
	next []slab.ChunkID
}

// New creates a Pool that carves at most maxChunks chunks (0 = no limit).
func New(maxChunks int) *Pool {
	return &Pool{rec: slab.NewRecycler[byte](ChunkPayload, maxChunks)}
}

// Stats reports carved and free chunk counts.
func (p *Pool) Stats() (allocated, free int) { return p.rec.Stats() }

// Alloc copies b into a new chunk list.
func (p *Pool) Alloc(b []byte) (Handle, error) {
	var h Handle
	if err := p.Append(&h, b); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Append grows the string behind h by b, linking new chunks as needed.
// On error h is left unchanged.
func (p *Pool) Append(h *Handle, b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// reserve every chunk up front so a failure can be rolled back
	tailFree := 0
	if h.Count > 0 {
		tailFree = h.Count*ChunkPayload - h.Size
	}
	need := 0
	if len(b) > tailFree {
		need = (len(b) - tailFree + ChunkPayload - 1) / ChunkPayload
	}
	fresh := make([]slab.ChunkID, 0, need)
	for range need {
		id, err := p.rec.Get()
		if err != nil {
			for _, f := range fresh {
				p.rec.Put(f)
			}
			return err
		}
		fresh = append(fresh, id)
	}

	for _, id := range fresh {
		p.setNext(id, slab.NilChunk)
		if h.Count == 0 {
			h.First = id
		} else {
			p.setNext(h.Last, id)
		}
		h.Last = id
		h.Count++
	}

	// the bytes fill the old tail first, then the fresh chunks in order
	pos := h.Size
	cur := p.chunkAt(*h, pos/ChunkPayload)
	for len(b) > 0 {
		off := pos % ChunkPayload
		if off == 0 && pos != h.Size {
			cur = p.next[cur]
		}
		n := copy(p.rec.Chunk(cur)[off:], b)
		b = b[n:]
		pos += n
	}
	h.Size = pos
	return nil
}

// TrimLast drops the final byte. An emptied trailing chunk is recycled.
// It reports whether there was a byte to drop.
func (p *Pool) TrimLast(h *Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.Size == 0 {
		return false
	}
	h.Size--
	p.rec.Chunk(h.Last)[h.Size%ChunkPayload] = 0
	if h.Size > (h.Count-1)*ChunkPayload {
		return true
	}

	// tail chunk is empty now
	empty := h.Last
	h.Count--
	if h.Count == 0 {
		*h = Handle{}
	} else {
		h.Last = p.chunkAt(*h, h.Count-1)
		p.next[h.Last] = slab.NilChunk
	}
	p.rec.Put(empty)
	return true
}

// Materialize copies the string into one contiguous buffer.
func (p *Pool) Materialize(h Handle) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, 0, h.Size)
	id := h.First
	for i := 0; i < h.Count; i++ {
		chunk := p.rec.Chunk(id)
		n := min(h.Size-len(out), ChunkPayload)
		out = append(out, chunk[:n]...)
		id = p.next[id]
	}
	return out
}

// Release returns every chunk of h to the free list and resets h.
func (p *Pool) Release(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := h.First
	for i := 0; i < h.Count; i++ {
		nxt := p.next[id]
		p.rec.Put(id)
		id = nxt
	}
	*h = Handle{}
}

// Equal compares the materialized contents of two strings.
func (p *Pool) Equal(a, b Handle) bool {
	if a.Size != b.Size {
		return false
	}
	return bytes.Equal(p.Materialize(a), p.Materialize(b))
}

// chunkAt walks to the n-th chunk of h. Caller holds p.mu.
func (p *Pool) chunkAt(h Handle, n int) slab.ChunkID {
	if h.Count == 0 {
		return slab.NilChunk
	}
	id := h.First
	for ; n > 0 && id != slab.NilChunk; n-- {
		id = p.next[id]
	}
	return id
}

// setNext records a link, growing the link table to cover id.
func (p *Pool) setNext(id, next slab.ChunkID) {
	for int(id) >= len(p.next) {
		p.next = append(p.next, slab.NilChunk)
	}
	p.next[id] = next
}
