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

package world

import "errors"

const (
	roomSlots     = 256
	overflowSlots = 32
)

// ErrRoomTableFull is returned when a room hashes onto an occupied slot
// and every overflow slot is taken as well.
var ErrRoomTableFull = errors.New("room table is full")

// roomTable is an open hash of rooms with a small overflow area. Slots are
// never freed while the server runs, so pointers into the table are stable.
type roomTable struct {
	main     [roomSlots]Room
	overflow [overflowSlots]Room
	count    int
}

func roomHash(c Coords) uint32 {
	return uint32(c.X+11-c.Y*7+(c.Z<<2)) % roomSlots
}

func (t *roomTable) lookup(c Coords) *Room {
	if r := &t.main[roomHash(c)]; r.used && r.Coords == c {
		return r
	}
	for i := range t.overflow {
		if r := &t.overflow[i]; r.used && r.Coords == c {
			return r
		}
	}
	return nil
}

// reserve returns the slot a new room at c should be written to.
func (t *roomTable) reserve(c Coords) (*Room, error) {
	if r := &t.main[roomHash(c)]; !r.used {
		return r, nil
	}
	for i := range t.overflow {
		if r := &t.overflow[i]; !r.used {
			return r, nil
		}
	}
	return nil, ErrRoomTableFull
}

func (t *roomTable) all(yield func(*Room) bool) {
	for i := range t.main {
		if t.main[i].used && !yield(&t.main[i]) {
			return
		}
	}
	for i := range t.overflow {
		if t.overflow[i].used && !yield(&t.overflow[i]) {
			return
		}
	}
}
