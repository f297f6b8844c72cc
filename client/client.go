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

// Package client tracks the peers currently talking to the server.
package client

import (
	"net/netip"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"WorldCore/world"
)

// Client is the server side record of one remote address.
type Client struct {
	// Addr is where the client's datagrams come from.
	Addr netip.AddrPort
	// LAN is the address the client reported for peer-to-peer fights
	// inside its own network.
	LAN     netip.AddrPort
	Session uuid.UUID

	LastSeen uint64

	LoggedIn  bool
	Account   uint64
	Character uint64

	Room world.Coords
	// Entered is the tick the client's character last entered Room.
	Entered uint64

	index int
	used  bool
	log   *zap.Logger
}

// Index returns the slot the client occupies in its table. It is never 0.
func (c *Client) Index() int { return c.index }

// Log returns a logger tagged with the client's session.
func (c *Client) Log() *zap.Logger { return c.log }

// Touch records activity from the client at tick.
func (c *Client) Touch(tick uint64) { c.LastSeen = tick }

// EnterRoom moves the client's view to room at tick.
func (c *Client) EnterRoom(room world.Coords, tick uint64) {
	c.Room = room
	c.Entered = tick
}

// NeedsFullSync reports whether the client entered its room recently
// enough that it should receive the whole room instead of a delta.
func (c *Client) NeedsFullSync(tick uint64) bool {
	return c.Entered+FullSyncTicks >= tick
}

// Expired reports whether the client has been silent for longer than
// timeout ticks.
func (c *Client) Expired(tick, timeout uint64) bool {
	return c.LastSeen+timeout < tick
}

// FullSyncTicks is how many ticks after entering a room a client keeps
// receiving full room updates.
const FullSyncTicks = 3
