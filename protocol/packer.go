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

package protocol

import (
	"net/netip"

	"WorldCore/world"
)

// Packer splits a stream of records into room-scoped datagrams. Every
// datagram repeats the same header, and a record is never split: the
// pending datagram is flushed before a record that would overflow it.
type Packer struct {
	emit func(*Datagram)

	dg      Datagram
	header  int
	records int
	sent    int
}

// NewPacker returns a Packer handing finished datagrams to emit. emit must
// not retain the pointer.
func NewPacker(emit func(*Datagram)) *Packer {
	return &Packer{emit: emit}
}

// Begin starts a new message of type t for the given client and room.
// Any records still pending from a previous message are flushed first.
func (p *Packer) Begin(to netip.AddrPort, t MessageType, tick uint64, room world.Coords) {
	p.Flush()
	p.dg.To = to
	p.dg.Len = len(AppendRoomHeader(p.dg.Data[:0], t, tick, room))
	p.header = p.dg.Len
	p.records = 0
}

// Add appends one record, flushing first if it would not fit. It reports
// false for a record too large for any datagram.
func (p *Packer) Add(record []byte) bool {
	if p.header+len(record) > MaxDatagram {
		return false
	}
	if p.dg.Len+len(record) > MaxDatagram {
		p.Flush()
	}
	p.dg.Len += copy(p.dg.Data[p.dg.Len:], record)
	p.records++
	return true
}

// Flush emits the pending datagram if it holds any record.
func (p *Packer) Flush() {
	if p.records == 0 {
		return
	}
	p.emit(&p.dg)
	p.sent++
	p.dg.Len = p.header
	p.records = 0
}

// Sent returns how many datagrams have been emitted so far.
func (p *Packer) Sent() int { return p.sent }
