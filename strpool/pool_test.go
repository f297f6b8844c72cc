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

package strpool

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"WorldCore/internal/slab"
)

func TestPool_RoundTrip(t *testing.T) {
	p := New(0)
	for _, s := range []string{
		"",
		"a",
		"hunter2",
		strings.Repeat("x", ChunkPayload),
		strings.Repeat("y", ChunkPayload+1),
		strings.Repeat("0123456789", 30),
	} {
		h, err := p.Alloc([]byte(s))
		if err != nil {
			t.Fatal(err)
		}
		if got := p.Materialize(h); string(got) != s {
			t.Errorf("round trip of %d bytes gave %q", len(s), got)
		}
		if want := (len(s) + ChunkPayload - 1) / ChunkPayload; h.Count != want {
			t.Errorf("%d bytes use %d chunks, want %d", len(s), h.Count, want)
		}
		p.Release(&h)
	}
	allocated, free := p.Stats()
	if allocated != free {
		t.Errorf("allocated=%d free=%d after releasing everything", allocated, free)
	}
}

func TestPool_Append(t *testing.T) {
	p := New(0)
	h, _ := p.Alloc([]byte("hello"))
	want := "hello"
	for _, part := range []string{", ", "world", strings.Repeat("!", 120), ""} {
		if err := p.Append(&h, []byte(part)); err != nil {
			t.Fatal(err)
		}
		want += part
		if got := string(p.Materialize(h)); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestPool_TrimLast(t *testing.T) {
	p := New(0)
	s := strings.Repeat("z", ChunkPayload) + "q"
	h, _ := p.Alloc([]byte(s))
	if h.Count != 2 {
		t.Fatalf("count = %d, want 2", h.Count)
	}
	if !p.TrimLast(&h) {
		t.Fatal("TrimLast on non-empty string returned false")
	}
	if got := string(p.Materialize(h)); got != s[:len(s)-1] {
		t.Fatalf("got %q", got)
	}
	if h.Count != 1 {
		t.Errorf("emptied trailing chunk not recycled, count = %d", h.Count)
	}
	if _, free := p.Stats(); free != 1 {
		t.Errorf("free = %d, want 1", free)
	}
	for p.TrimLast(&h) {
	}
	if h != (Handle{}) || len(p.Materialize(h)) != 0 {
		t.Errorf("fully trimmed handle = %+v", h)
	}
}

func TestPool_Equal(t *testing.T) {
	p := New(0)
	a, _ := p.Alloc([]byte("name"))
	b, _ := p.Alloc([]byte("na"))
	if p.Equal(a, b) {
		t.Fatal("different strings compare equal")
	}
	_ = p.Append(&b, []byte("me"))
	if !p.Equal(a, b) {
		t.Fatal("equal contents compare different")
	}
}

func TestPool_Budget(t *testing.T) {
	p := New(1)
	h, err := p.Alloc([]byte("ok"))
	if err != nil {
		t.Fatal(err)
	}
	before := h
	if err := p.Append(&h, bytes.Repeat([]byte("a"), ChunkPayload)); !errors.Is(err, slab.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if h != before || string(p.Materialize(h)) != "ok" {
		t.Fatalf("failed append modified the handle")
	}
}

func TestPool_Concurrent(t *testing.T) {
	p := New(0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			s := strings.Repeat(string(rune('a'+g)), 10+g*20)
			for i := 0; i < 200; i++ {
				h, err := p.Alloc([]byte(s))
				if err != nil {
					t.Error(err)
					return
				}
				if string(p.Materialize(h)) != s {
					t.Errorf("goroutine %d read a foreign string", g)
				}
				p.Release(&h)
			}
		}(g)
	}
	wg.Wait()
}
