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

package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[string](3)
	for _, s := range []string{"a", "b", "c"} {
		q.Push(s)
	}
	if q.Len() != 3 || q.Cap() != 3 {
		t.Fatalf("len %d cap %d, want 3 and 3", q.Len(), q.Cap())
	}
	for _, want := range []string{"a", "b", "c"} {
		if got, ok := q.Pull(); !ok || got != want {
			t.Fatalf("Pull() = %q, %v; want %q", got, ok, want)
		}
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 10; i++ {
		q.Push(i)
		if got, _ := q.TryPull(); got != i {
			t.Fatalf("got %d, want %d", got, i)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d", q.Len())
	}
}

func TestQueue_TryPullEmpty(t *testing.T) {
	q := New[int](1)
	done := make(chan struct{})
	go func() {
		if _, ok := q.TryPull(); ok {
			t.Error("TryPull on an empty queue returned an item")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TryPull blocked")
	}
}

func TestQueue_PushBlocksWhileFull(t *testing.T) {
	q := New[int](1)
	q.Push(1)

	pushed := make(chan struct{})
	go func() {
		q.Push(2)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("Push on a full queue returned before a slot was freed")
	case <-time.After(50 * time.Millisecond):
	}

	if v, _ := q.Pull(); v != 1 {
		t.Fatalf("first pull = %d", v)
	}
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("Push still blocked after Pull freed a slot")
	}
	if v, _ := q.Pull(); v != 2 {
		t.Fatalf("second pull = %d", v)
	}
}

func TestQueue_PullBlocksUntilPush(t *testing.T) {
	q := New[int](4)
	got := make(chan int)
	go func() {
		v, _ := q.Pull()
		got <- v
	}()
	time.Sleep(20 * time.Millisecond)
	q.Push(7)
	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pull was never woken")
	}
}

func TestQueue_Close(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Close()
	if q.Push(2) {
		t.Fatal("Push succeeded on a closed queue")
	}
	if v, ok := q.Pull(); !ok || v != 1 {
		t.Fatalf("closed queue lost its item: %d %v", v, ok)
	}
	if _, ok := q.Pull(); ok {
		t.Fatal("Pull on a drained closed queue returned ok")
	}
}

func TestQueue_ProducersConsumer(t *testing.T) {
	const producers, each = 4, 500
	q := New[int](8)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(p*each + i)
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for n := 0; n < producers*each; n++ {
		v, _ := q.Pull()
		p, i := v/each, v%each
		if i <= last[p] {
			t.Fatalf("producer %d: %d after %d", p, i, last[p])
		}
		last[p] = i
	}
	wg.Wait()
}
