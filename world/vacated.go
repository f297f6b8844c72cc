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

const vacatedLen = 1024

// vacated remembers that an entity left (or was removed from) a room.
type vacated struct {
	id   uint64
	tick uint64
	room Coords
}

// vacatedRing keeps the most recent departures. Old entries are simply
// overwritten; by then every client has resynced the room.
type vacatedRing struct {
	items [vacatedLen]vacated
	next  int
}

func (r *vacatedRing) record(v vacated) {
	r.items[r.next] = v
	r.next = (r.next + 1) % vacatedLen
}

// collect appends the ids that left room c no earlier than tick since.
func (r *vacatedRing) collect(c Coords, since uint64, dst []uint64) []uint64 {
	for i := range r.items {
		v := &r.items[i]
		if v.id != 0 && v.room == c && v.tick >= since {
			dst = append(dst, v.id)
		}
	}
	return dst
}
