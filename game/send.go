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

package game

import (
	"context"

	"go.uber.org/zap"

	"WorldCore/client"
	"WorldCore/protocol"
	"WorldCore/world"
)

// sender state reused between send ticks.
type syncState struct {
	clients []client.Client
	rooms   []world.Snapshot
	byRoom  map[world.Coords]int
	record  []byte
	packer  *protocol.Packer
}

func (g *Game) sendLoop(ctx context.Context) {
	log := g.log.Named("send")
	st := &syncState{
		packer: protocol.NewPacker(func(d *protocol.Datagram) { g.send(*d) }),
	}
	p := pacer{period: g.config.SendTick.Duration}
	for p.next(ctx) {
		sent := st.packer.Sent()
		g.syncClients(st)
		if n := st.packer.Sent() - sent; n > 0 {
			log.Debug("Synced clients", zap.Int("clients", len(st.clients)), zap.Int("datagrams", n))
		}
	}
}

// syncClients sends every playing client the state of its room. The
// locks are only held while copying; serialization and queueing happen
// outside them.
func (g *Game) syncClients(st *syncState) {
	g.clients.Lock()
	st.clients = g.clients.Values(st.clients[:0])
	g.clients.Unlock()

	// Rooms are copied and dirty flags reset in one section, so anything
	// changed after the copy is still flagged on the next pass.
	if st.byRoom == nil {
		st.byRoom = make(map[world.Coords]int)
	}
	clear(st.byRoom)
	n := 0
	g.world.Lock()
	for i := range st.clients {
		c := &st.clients[i]
		if c.Character == 0 {
			continue
		}
		if _, ok := st.byRoom[c.Room]; ok {
			continue
		}
		if n == len(st.rooms) {
			st.rooms = append(st.rooms, world.Snapshot{})
		}
		if g.world.Snapshot(c.Room, &st.rooms[n]) {
			st.byRoom[c.Room] = n
			n++
		}
	}
	g.world.ClearChanged()
	g.world.Unlock()

	for i := range st.clients {
		c := &st.clients[i]
		j, ok := st.byRoom[c.Room]
		if c.Character == 0 || !ok {
			continue
		}
		r := &st.rooms[j]
		if c.NeedsFullSync(r.Tick) {
			g.sendFullRoom(st, c, r)
		} else {
			g.sendRoomDelta(st, c, r)
		}
	}
}

func (g *Game) sendFullRoom(st *syncState, c *client.Client, r *world.Snapshot) {
	p := st.packer
	p.Begin(c.Addr, protocol.MessageRoomLayout, r.Tick, r.Coords)
	for i, t := range r.Tiles {
		st.record = protocol.AppendTile(st.record[:0], uint16(i), t)
		p.Add(st.record)
	}
	p.Begin(c.Addr, protocol.MessageRoomEntities, r.Tick, r.Coords)
	for i := range r.Entities {
		g.addEntity(st, r, i)
	}
	p.Flush()
}

func (g *Game) sendRoomDelta(st *syncState, c *client.Client, r *world.Snapshot) {
	p := st.packer
	p.Begin(c.Addr, protocol.MessageRoomDelta, r.Tick, r.Coords)
	for i := range r.Entities {
		if r.Entities[i].Changed {
			g.addEntity(st, r, i)
		}
	}
	p.Begin(c.Addr, protocol.MessageRoomDeletions, r.Tick, r.Coords)
	for _, id := range r.Deleted {
		st.record = protocol.AppendDeletion(st.record[:0], id)
		p.Add(st.record)
	}
	p.Flush()
}

func (g *Game) addEntity(st *syncState, r *world.Snapshot, i int) {
	e := &r.Entities[i]
	st.record = protocol.AppendEntity(st.record[:0], e, r.Names[i])
	if !st.packer.Add(st.record) {
		g.log.Warn("Entity record too large", zap.Uint64("eid", e.ID), zap.Int("size", len(st.record)))
	}
}

// writeLoop drains the outgoing queue into the socket.
func (g *Game) writeLoop(context.Context) {
	for {
		d, ok := g.outgoing.Pull()
		if !ok {
			return
		}
		if _, err := g.conn.WriteToUDPAddrPort(d.Bytes(), d.To); err != nil {
			g.log.Debug("Send datagram fail", zap.Stringer("addr", d.To), zap.Error(err))
		}
	}
}
