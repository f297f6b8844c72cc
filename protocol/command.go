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
	"bytes"
	"errors"
	"fmt"
	"net/netip"

	"WorldCore/strpool"
	"WorldCore/world"
)

var (
	ErrShortCommand   = errors.New("command truncated")
	ErrUnknownCommand = errors.New("unknown command type")
)

// CommandType is the first byte of every datagram a client sends.
type CommandType uint8

const (
	CommandInvalid CommandType = iota
	CommandKeepAlive
	CommandWalk
	CommandLogin
	CommandCreateCharacter
	CommandStartFight
	CommandWonFight
	CommandLostFight
	commandTypeCount
)

var commandNames = [commandTypeCount]string{
	"Invalid", "KeepAlive", "Walk", "Login", "CreateCharacter",
	"StartFight", "WonFight", "LostFight",
}

func (t CommandType) String() string {
	if t < commandTypeCount {
		return commandNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", uint8(t))
}

// Direction of a Walk command.
type Direction uint8

const (
	DirectionInvalid Direction = iota
	North
	South
	East
	West
)

// Command is a decoded client datagram. It is plain data so it can sit in
// a queue; the Name and Password handles point into the string pool and
// must be released by whoever consumes the command.
type Command struct {
	Type CommandType
	From netip.AddrPort

	// Login
	LAN      netip.AddrPort
	Name     strpool.Handle
	Password strpool.Handle

	// Walk
	Direction Direction

	// CreateCharacter
	Color uint8
	// Silence picks Silence over Empower as the third starting spell.
	Silence bool

	// StartFight, WonFight
	Target uint64
	HP, MP uint64
}

// Release hands the command's strings back to pool.
func (c *Command) Release(pool *strpool.Pool) {
	pool.Release(&c.Name)
	pool.Release(&c.Password)
}

// DecodeCommand parses one datagram received from addr. Login names and
// passwords are copied into pool.
func DecodeCommand(pool *strpool.Pool, from netip.AddrPort, data []byte) (cmd Command, err error) {
	if len(data) == 0 {
		return cmd, ErrShortCommand
	}
	cmd.Type = CommandType(data[0])
	cmd.From = from
	d := newDecoder(data[1:], ErrShortCommand)

	switch cmd.Type {
	case CommandKeepAlive, CommandLostFight:
	case CommandWalk:
		cmd.Direction = Direction(take[uint8](d))
	case CommandLogin:
		port := ^take[uint16](d)
		ip := ^take[uint32](d)
		cmd.LAN = netip.AddrPortFrom(addrFromUint32(ip), port)
		name := d.bytes(int(take[uint8](d)))
		if d.err != nil {
			break
		}
		password := d.b
		if i := bytes.IndexByte(password, 0); i >= 0 {
			password = password[:i]
		}
		if cmd.Name, err = pool.Alloc(name); err != nil {
			return Command{}, fmt.Errorf("store name: %w", err)
		}
		if cmd.Password, err = pool.Alloc(password); err != nil {
			pool.Release(&cmd.Name)
			return Command{}, fmt.Errorf("store password: %w", err)
		}
	case CommandCreateCharacter:
		cmd.Color = take[uint8](d)
		cmd.Silence = world.SpellType(take[uint8](d)) == world.SpellSilence
	case CommandStartFight:
		cmd.Target = take[uint64](d)
	case CommandWonFight:
		cmd.Target = take[uint64](d)
		cmd.HP = take[uint64](d)
		cmd.MP = take[uint64](d)
	default:
		return Command{}, fmt.Errorf("%w: %d", ErrUnknownCommand, data[0])
	}
	if d.err != nil {
		return Command{}, fmt.Errorf("%v: %w", cmd.Type, d.err)
	}
	return cmd, nil
}

func addrFromUint32(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func addrToUint32(a netip.Addr) uint32 {
	if !a.Unmap().Is4() {
		return 0
	}
	b := a.Unmap().As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// The Append functions build client commands. The server only decodes
// them; they exist for tools and tests that play the client side.

func AppendKeepAlive(b []byte) []byte { return append(b, byte(CommandKeepAlive)) }

func AppendWalk(b []byte, dir Direction) []byte {
	return append(b, byte(CommandWalk), byte(dir))
}

func AppendLogin(b []byte, lan netip.AddrPort, name, password []byte) []byte {
	b = append(b, byte(CommandLogin))
	b = appendLE(b, ^lan.Port())
	b = appendLE(b, ^addrToUint32(lan.Addr()))
	b = append(b, byte(len(name)))
	b = append(b, name...)
	b = append(b, password...)
	return append(b, 0)
}

func AppendCreateCharacter(b []byte, color uint8, spell world.SpellType) []byte {
	return append(b, byte(CommandCreateCharacter), color, byte(spell))
}

func AppendStartFight(b []byte, target uint64) []byte {
	return appendLE(append(b, byte(CommandStartFight)), target)
}

func AppendWonFight(b []byte, loser, hp, mp uint64) []byte {
	b = appendLE(append(b, byte(CommandWonFight)), loser)
	b = appendLE(b, hp)
	return appendLE(b, mp)
}

func AppendLostFight(b []byte) []byte { return append(b, byte(CommandLostFight)) }
