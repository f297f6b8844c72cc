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

package client

import (
	"errors"
	"iter"
	"net/netip"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTableFull is returned by Bind when every slot is taken.
var ErrTableFull = errors.New("client table is full")

// Table is a fixed set of client slots. Slot 0 is never handed out.
// The embedded mutex guards every field of every Client; the game loop
// holds it for a whole tick.
type Table struct {
	sync.Mutex

	log   *zap.Logger
	slots []Client
	count int
}

func NewTable(logger *zap.Logger, capacity int) *Table {
	t := &Table{
		log:   logger,
		slots: make([]Client, capacity+1),
	}
	for i := range t.slots {
		t.slots[i].index = i
	}
	return t
}

func (t *Table) Len() int { return t.count }

func (t *Table) Cap() int { return len(t.slots) - 1 }

func (t *Table) find(pred func(*Client) bool) *Client {
	for i := 1; i < len(t.slots); i++ {
		if c := &t.slots[i]; c.used && pred(c) {
			return c
		}
	}
	return nil
}

// ByAddr returns the client sending from addr, or nil.
func (t *Table) ByAddr(addr netip.AddrPort) *Client {
	return t.find(func(c *Client) bool { return c.Addr == addr })
}

// ByCharacter returns the client controlling entity id, or nil.
func (t *Table) ByCharacter(id uint64) *Client {
	if id == 0 {
		return nil
	}
	return t.find(func(c *Client) bool { return c.Character == id })
}

// Bind returns the client for addr, taking a free slot if the address is
// new.
func (t *Table) Bind(addr netip.AddrPort, tick uint64) (*Client, error) {
	if c := t.ByAddr(addr); c != nil {
		return c, nil
	}
	var c *Client
	for i := 1; i < len(t.slots) && c == nil; i++ {
		if !t.slots[i].used {
			c = &t.slots[i]
		}
	}
	if c == nil {
		return nil, ErrTableFull
	}

	session := uuid.New()
	*c = Client{
		Addr:     addr,
		Session:  session,
		LastSeen: tick,
		index:    c.index,
		used:     true,
		log: t.log.With(
			zap.Stringer("session", session),
			zap.Stringer("addr", addr),
		),
	}
	t.count++
	c.log.Info("Client bound", zap.Int("slot", c.index))
	return c, nil
}

// Clear frees the client's slot.
func (t *Table) Clear(c *Client) {
	if !c.used {
		return
	}
	c.log.Info("Client cleared", zap.Uint64("character", c.Character))
	*c = Client{index: c.index}
	t.count--
}

// Reap clears every client silent for more than timeout ticks and returns
// how many were removed.
func (t *Table) Reap(tick, timeout uint64) (n int) {
	for c := range t.All() {
		if c.Expired(tick, timeout) {
			c.log.Info("Client timed out", zap.Uint64("last-seen", c.LastSeen))
			t.Clear(c)
			n++
		}
	}
	return
}

// All iterates over the bound clients.
func (t *Table) All() iter.Seq[*Client] {
	return func(yield func(*Client) bool) {
		for i := 1; i < len(t.slots); i++ {
			if c := &t.slots[i]; c.used && !yield(c) {
				return
			}
		}
	}
}

// Values appends a copy of every bound client to dst.
func (t *Table) Values(dst []Client) []Client {
	for c := range t.All() {
		dst = append(dst, *c)
	}
	return dst
}
