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

// Package protocol implements the little-endian datagram format spoken
// between the server and its clients.
package protocol

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

// appendLE appends v in little-endian order using exactly as many bytes as
// T occupies.
func appendLE[T constraints.Integer](b []byte, v T) []byte {
	switch binary.Size(v) {
	case 1:
		return append(b, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	case 8:
		return binary.LittleEndian.AppendUint64(b, uint64(v))
	}
	panic("protocol: integer without a fixed size")
}

// decoder reads fixed-size little-endian fields off a byte slice. The
// first short read sets err; every later read returns zero.
type decoder struct {
	b     []byte
	err   error
	short error
}

func newDecoder(b []byte, short error) *decoder {
	return &decoder{b: b, short: short}
}

func take[T constraints.Integer](d *decoder) (v T) {
	size := binary.Size(v)
	if d.err != nil {
		return
	}
	if size < 0 {
		panic("protocol: integer without a fixed size")
	}
	if len(d.b) < size {
		d.err = d.short
		return
	}
	switch size {
	case 1:
		v = T(d.b[0])
	case 2:
		v = T(binary.LittleEndian.Uint16(d.b))
	case 4:
		v = T(binary.LittleEndian.Uint32(d.b))
	case 8:
		v = T(binary.LittleEndian.Uint64(d.b))
	}
	d.b = d.b[size:]
	return
}

// bytes returns the next n bytes without copying.
func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.b) < n {
		d.err = d.short
		return nil
	}
	v := d.b[:n:n]
	d.b = d.b[n:]
	return v
}
