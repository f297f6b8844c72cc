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
	"bytes"
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"WorldCore/client"
	"WorldCore/protocol"
	"WorldCore/world"
)

// Where new characters appear and what they start with.
const (
	spawnX     = world.RoomWidth/2 + 2
	spawnY     = world.RoomHeight / 2
	startingHP = 10
	startingMP = 20
)

var spawnRoom = world.Coords{}

// colorSpells grants a fourth starting spell to characters of these colors.
var colorSpells = map[uint8]world.SpellType{
	196: world.SpellFireball,
	33:  world.SpellManaRain,
	70:  world.SpellHeal,
	130: world.SpellEarthenWall,
}

func (g *Game) gameLoop(ctx context.Context) {
	p := pacer{period: g.config.GameTick.Duration}
	for p.next(ctx) {
		g.tick(p.start)
	}
}

// tick advances the simulation by one step. Both locks are held for the
// whole step so no reader ever sees half of it.
func (g *Game) tick(now time.Time) {
	g.clients.Lock()
	defer g.clients.Unlock()
	g.world.Lock()
	defer g.world.Unlock()

	tick := g.world.Advance()
	for {
		cmd, ok := g.commands.TryPull()
		if !ok {
			break
		}
		if int(cmd.Type) < len(commandHandlers) && commandHandlers[cmd.Type] != nil {
			commandHandlers[cmd.Type](g, tick, &cmd)
		}
		cmd.Release(g.strings)
	}

	if now.Sub(g.lastBurn) > g.config.BurnInterval.Duration {
		g.lastBurn = now
		if hits := g.world.Burn(); hits > 0 {
			g.log.Debug("Burn", zap.Int("hits", hits))
		}
	}
	if now.Sub(g.lastRegen) > g.config.RegenInterval.Duration {
		g.lastRegen = now
		g.world.Regen()
	}
	g.clients.Reap(tick, g.config.ClientTimeout)
}

type commandHandler func(g *Game, tick uint64, cmd *protocol.Command)

var commandHandlers = [...]commandHandler{
	protocol.CommandKeepAlive:       (*Game).handleKeepAlive,
	protocol.CommandWalk:            (*Game).handleWalk,
	protocol.CommandLogin:           (*Game).handleLogin,
	protocol.CommandCreateCharacter: (*Game).handleCreateCharacter,
	protocol.CommandStartFight:      (*Game).handleStartFight,
	protocol.CommandWonFight:        (*Game).handleWonFight,
	protocol.CommandLostFight:       (*Game).handleLostFight,
}

// send queues a datagram for the writer. It blocks while the outgoing
// queue is full.
func (g *Game) send(d protocol.Datagram) {
	if !g.outgoing.Push(d) {
		g.log.Debug("Drop message after shutdown", zap.Stringer("type", d.Type()))
	}
}

// sender returns the client a command came from, or nil if the address
// never logged in.
func (g *Game) sender(cmd *protocol.Command) *client.Client {
	c := g.clients.ByAddr(cmd.From)
	if c == nil {
		g.log.Debug("Command from unknown address",
			zap.Stringer("cmd", cmd.Type),
			zap.Stringer("addr", cmd.From))
	}
	return c
}

func (g *Game) handleKeepAlive(tick uint64, cmd *protocol.Command) {
	if c := g.sender(cmd); c != nil {
		c.Touch(tick)
	}
}

func (g *Game) handleWalk(tick uint64, cmd *protocol.Command) {
	c := g.sender(cmd)
	if c == nil || c.Character == 0 {
		return
	}
	room, ok := g.world.Room(c.Room)
	if !ok {
		return
	}
	e := room.Find(c.Character)
	if e == nil {
		c.Log().Warn("Character not in its room", zap.Uint64("eid", c.Character), zap.Stringer("room", c.Room))
		return
	}

	x, y := int(e.X), int(e.Y)
	dest := room.Coords
	switch cmd.Direction {
	case protocol.North:
		if y--; y < 0 {
			y, dest.Y = world.RoomHeight-1, dest.Y-1
		}
	case protocol.South:
		if y++; y >= world.RoomHeight {
			y, dest.Y = 0, dest.Y+1
		}
	case protocol.East:
		if x++; x >= world.RoomWidth {
			x, dest.X = 0, dest.X+1
		}
	case protocol.West:
		if x--; x < 0 {
			x, dest.X = world.RoomWidth-1, dest.X-1
		}
	default:
		c.Log().Debug("Invalid walk direction", zap.Uint8("dir", uint8(cmd.Direction)))
		return
	}

	if dest == room.Coords {
		if room.BlockedAt(uint8(x), uint8(y)) {
			return
		}
		e.X, e.Y = uint8(x), uint8(y)
		e.Changed = true
		return
	}

	next, err := g.world.GenerateRoom(dest)
	if err != nil {
		g.fatal("Cannot generate room", err)
		return
	}
	if next.BlockedAt(uint8(x), uint8(y)) {
		return
	}
	if _, err := g.world.MoveEntity(room, next, c.Character, uint8(x), uint8(y)); err != nil {
		g.fatal("Cannot move character", err)
		return
	}
	c.EnterRoom(dest, tick)
	if acct := g.world.Accounts().ByID(c.Account); acct != nil && c.LoggedIn {
		acct.Room = dest
	}
	c.Log().Debug("Changed room", zap.Stringer("room", dest))
}

func (g *Game) handleLogin(tick uint64, cmd *protocol.Command) {
	c, err := g.clients.Bind(cmd.From, tick)
	if err != nil {
		g.log.Warn("Reject login", zap.Stringer("addr", cmd.From), zap.Error(err))
		return
	}
	c.Touch(tick)
	c.LAN = cmd.LAN

	name := g.strings.Materialize(cmd.Name)
	password := g.strings.Materialize(cmd.Password)
	accounts := g.world.Accounts()
	acct := accounts.ByName(name)
	switch {
	case acct == nil:
		if acct, err = accounts.Create(name, password, spawnRoom); err != nil {
			g.fatal("Cannot store account", err)
			return
		}
		c.Log().Info("Account created", zap.ByteString("name", name), zap.Uint64("account", acct.ID))
	case !bytes.Equal(acct.Password, password):
		c.Log().Info("Bad password", zap.ByteString("name", name))
		g.send(protocol.Signal(c.Addr, protocol.MessageBadPassword))
		return
	}

	// A client switching accounts leaves its previous character behind.
	c.LoggedIn = true
	c.Account = acct.ID
	c.Character = 0
	c.Room = acct.Room
	if acct.Character == 0 {
		g.send(protocol.Signal(c.Addr, protocol.MessageNewAccountCreated))
		return
	}
	if old := g.clients.ByCharacter(acct.Character); old != nil && old != c {
		g.clients.Clear(old)
	}
	c.Character = acct.Character
	c.EnterRoom(acct.Room, tick)
	c.Log().Info("Logged in", zap.ByteString("name", name), zap.Uint64("eid", c.Character))
	g.send(protocol.CharacterID(c.Addr, c.Character))
}

func (g *Game) handleCreateCharacter(tick uint64, cmd *protocol.Command) {
	c := g.sender(cmd)
	if c == nil || !c.LoggedIn {
		return
	}
	if c.Character != 0 {
		c.Log().Debug("Client already has a character", zap.Uint64("eid", c.Character))
		return
	}
	room, ok := g.world.Room(spawnRoom)
	if !ok {
		return
	}

	e := world.NewEntity(world.EntityCharacter, spawnX, spawnY)
	e.HP, e.MaxHP = startingHP, startingHP
	e.MP, e.MaxMP = startingMP, startingMP
	e.Color = cmd.Color
	e.Changed = true
	e.Spells = e.Spells.With(world.SpellMagicMissile).With(world.SpellShield)
	if cmd.Silence {
		e.Spells = e.Spells.With(world.SpellSilence)
	} else {
		e.Spells = e.Spells.With(world.SpellEmpower)
	}
	if spell, ok := colorSpells[cmd.Color]; ok {
		e.Spells = e.Spells.With(spell)
	}
	created, err := g.world.AddEntity(room, e)
	if err != nil {
		g.fatal("Cannot add character", err)
		return
	}

	c.Character = created.ID
	c.EnterRoom(spawnRoom, tick)
	if acct := g.world.Accounts().ByID(c.Account); acct != nil {
		acct.Character = created.ID
		acct.Room = spawnRoom
	}
	c.Log().Info("Character created", zap.Uint64("eid", created.ID), zap.Uint8("color", created.Color))
	g.send(protocol.CharacterID(c.Addr, created.ID))
}

func (g *Game) handleStartFight(_ uint64, cmd *protocol.Command) {
	c := g.sender(cmd)
	if c == nil || c.Character == 0 {
		return
	}
	target := g.clients.ByCharacter(cmd.Target)
	if target == nil || target == c {
		g.send(protocol.Signal(c.Addr, protocol.MessageFightOpponentNotOnline))
		return
	}
	g.send(protocol.FightIP(c.Addr, target.Addr, target.LAN))
	g.send(protocol.FightIP(target.Addr, c.Addr, c.LAN))
	c.Log().Info("Fight started", zap.Uint64("eid", c.Character), zap.Uint64("target", cmd.Target))
}

func (g *Game) handleWonFight(_ uint64, cmd *protocol.Command) {
	c := g.sender(cmd)
	if c == nil || c.Character == 0 || cmd.Target == c.Character {
		return
	}
	if room, ok := g.world.Room(c.Room); ok {
		if e := room.Find(c.Character); e != nil {
			e.HP = clampStat(cmd.HP)
			e.MP = clampStat(cmd.MP)
			e.Wins++
			e.Changed = true
		}
	}

	if loser := g.clients.ByCharacter(cmd.Target); loser != nil {
		g.clients.Clear(loser)
	}
	if room, _ := g.world.FindEntity(cmd.Target); room != nil {
		g.world.DeleteEntity(room, cmd.Target)
	}
	if acct := g.world.Accounts().ByCharacter(cmd.Target); acct != nil {
		acct.Character = 0
	}
	c.Log().Info("Fight won", zap.Uint64("eid", c.Character), zap.Uint64("loser", cmd.Target))
}

func (g *Game) handleLostFight(_ uint64, cmd *protocol.Command) {
	if c := g.sender(cmd); c != nil {
		c.Log().Debug("Fight lost", zap.Uint64("eid", c.Character))
	}
}

func clampStat(v uint64) uint16 {
	return uint16(min(v, math.MaxUint16))
}
