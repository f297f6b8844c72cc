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
	"errors"
	"fmt"
	"net/netip"

	"WorldCore/world"
)

// MaxDatagram is the largest payload the server ever sends.
const MaxDatagram = 508

// RoomHeaderSize is the length of the type byte plus tick and room
// coordinates that open every room-scoped message.
const RoomHeaderSize = 1 + 8 + 4 + 4 + 4

// TileRecordSize is the length of one RoomLayout entry.
const TileRecordSize = 2 + 1

var ErrShortMessage = errors.New("message truncated")

// MessageType is the first byte of every datagram the server sends.
type MessageType uint8

const (
	MessageInvalid MessageType = iota
	MessageRoomLayout
	MessageRoomEntities
	MessageRoomDelta
	MessageRoomDeletions
	MessageCharacterID
	MessageFightIP
	MessageFightMe
	MessageFightInput
	MessageFightOpponentNotOnline
	MessageFightMeAck
	MessageBadPassword
	MessageNewAccountCreated
	messageTypeCount
)

var messageNames = [messageTypeCount]string{
	"Invalid", "RoomLayout", "RoomEntities", "RoomDelta", "RoomDeletions",
	"CharacterId", "FightIp", "FightMe", "FightInput",
	"FightOpponentNotOnline", "FightMeAck", "BadPw", "NewAccountCreated",
}

func (t MessageType) String() string {
	if t < messageTypeCount {
		return messageNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// Datagram is one outbound packet. It is a plain value so it can be
// queued without allocation.
type Datagram struct {
	To   netip.AddrPort
	Len  int
	Data [MaxDatagram]byte
}

func (d *Datagram) Bytes() []byte { return d.Data[:d.Len] }

// Type returns the message type of a non-empty datagram.
func (d *Datagram) Type() MessageType {
	if d.Len == 0 {
		return MessageInvalid
	}
	return MessageType(d.Data[0])
}

func (d *Datagram) set(b []byte) {
	d.Len = copy(d.Data[:], b)
}

// Signal builds a message that is nothing but its type byte, such as
// BadPw or NewAccountCreated.
func Signal(to netip.AddrPort, t MessageType) Datagram {
	d := Datagram{To: to, Len: 1}
	d.Data[0] = byte(t)
	return d
}

// CharacterID tells a client which entity it controls.
func CharacterID(to netip.AddrPort, id uint64) Datagram {
	d := Datagram{To: to}
	d.set(appendLE([]byte{byte(MessageCharacterID)}, id))
	return d
}

// FightIP tells a client where to reach its opponent: the public address
// the server sees and the LAN address the opponent reported.
func FightIP(to, public, lan netip.AddrPort) Datagram {
	b := make([]byte, 0, 1+4+2+4+2)
	b = append(b, byte(MessageFightIP))
	b = appendLE(b, addrToUint32(public.Addr()))
	b = appendLE(b, public.Port())
	b = appendLE(b, addrToUint32(lan.Addr()))
	b = appendLE(b, lan.Port())
	d := Datagram{To: to}
	d.set(b)
	return d
}

// ParseFightIP is the client side of FightIP.
func ParseFightIP(b []byte) (public, lan netip.AddrPort, err error) {
	if len(b) == 0 || MessageType(b[0]) != MessageFightIP {
		return public, lan, fmt.Errorf("not a FightIp message")
	}
	d := newDecoder(b[1:], ErrShortMessage)
	ip, port := take[uint32](d), take[uint16](d)
	lanIP, lanPort := take[uint32](d), take[uint16](d)
	public = netip.AddrPortFrom(addrFromUint32(ip), port)
	lan = netip.AddrPortFrom(addrFromUint32(lanIP), lanPort)
	return public, lan, d.err
}

// AppendRoomHeader writes the header shared by every room-scoped message.
func AppendRoomHeader(b []byte, t MessageType, tick uint64, room world.Coords) []byte {
	b = append(b, byte(t))
	b = appendLE(b, tick)
	b = appendLE(b, room.X)
	b = appendLE(b, room.Y)
	return appendLE(b, room.Z)
}

// RoomHeader is the decoded form of AppendRoomHeader.
type RoomHeader struct {
	Type MessageType
	Tick uint64
	Room world.Coords
}

// ParseRoomHeader splits a room-scoped message into header and body.
func ParseRoomHeader(b []byte) (h RoomHeader, body []byte, err error) {
	d := newDecoder(b, ErrShortMessage)
	h.Type = MessageType(take[uint8](d))
	h.Tick = take[uint64](d)
	h.Room = world.Coords{X: take[int32](d), Y: take[int32](d), Z: take[int32](d)}
	return h, d.b, d.err
}

// AppendTile writes one RoomLayout entry.
func AppendTile(b []byte, pos uint16, t world.TileType) []byte {
	return append(appendLE(b, pos), byte(t))
}

// AppendDeletion writes one RoomDeletions entry.
func AppendDeletion(b []byte, id uint64) []byte { return appendLE(b, id) }

// AppendEntity serializes e. The optional blocks follow the entity's
// feature bits; name is only written for characters.
func AppendEntity(b []byte, e *world.Entity, name []byte) []byte {
	b = appendLE(b, e.ID)
	b = appendLE(b, uint64(e.Features))
	b = append(b, e.X, e.Y, byte(e.Type))
	if e.Features.Has(world.FeatureRegensHp) {
		b = appendLE(b, e.HP)
		b = appendLE(b, e.MaxHP)
	}
	if e.Features.Has(world.FeatureRegensMp) {
		b = appendLE(b, e.MP)
		b = appendLE(b, e.MaxMP)
	}
	if e.Features.Has(world.FeatureKnowsSpells) {
		b = appendLE(b, uint64(e.Spells))
	}
	if e.Type == world.EntityCharacter {
		b = append(b, e.Color)
		b = appendLE(b, uint64(len(name)))
		b = append(b, name...)
	}
	return b
}

// DecodeEntity reads one entity record and returns the remaining bytes.
func DecodeEntity(b []byte) (e world.Entity, name, rest []byte, err error) {
	d := newDecoder(b, ErrShortMessage)
	e.ID = take[uint64](d)
	e.Features = world.Features(take[uint64](d))
	e.X = take[uint8](d)
	e.Y = take[uint8](d)
	e.Type = world.EntityType(take[uint8](d))
	if e.Features.Has(world.FeatureRegensHp) {
		e.HP, e.MaxHP = take[uint16](d), take[uint16](d)
	}
	if e.Features.Has(world.FeatureRegensMp) {
		e.MP, e.MaxMP = take[uint16](d), take[uint16](d)
	}
	if e.Features.Has(world.FeatureKnowsSpells) {
		e.Spells = world.Spells(take[uint64](d))
	}
	if e.Type == world.EntityCharacter {
		e.Color = take[uint8](d)
		n := take[uint64](d)
		if n > MaxDatagram {
			return e, nil, nil, fmt.Errorf("name length %d: %w", n, ErrShortMessage)
		}
		name = d.bytes(int(n))
	}
	return e, name, d.b, d.err
}
