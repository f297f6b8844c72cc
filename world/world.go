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

// Package world holds the authoritative game state: rooms, the entities
// inside them and the account registry. Nothing in here locks on its own;
// callers hold the World mutex around every call.
package world

import (
	"errors"
	"iter"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"WorldCore/internal/slab"
)

// DeletionWindow is how many ticks a departure stays visible to delta
// updates.
const DeletionWindow = 6

// ErrNoEntity is returned when an entity is not where the caller expected.
var ErrNoEntity = errors.New("no such entity")

// StartupRooms are generated before the server accepts clients.
var StartupRooms = []Coords{
	{0, 0, 0}, {0, 0, -1}, {1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0},
}

// Config sizes the entity and account storage.
type Config struct {
	ChunkSize        int
	MaxEntityChunks  int
	MaxAccountChunks int
	Seed             uint64
}

type World struct {
	sync.Mutex

	log       *zap.Logger
	templates TemplateSource
	rng       *rand.Rand

	entities *slab.Recycler[Entity]
	rooms    roomTable
	accounts Accounts
	vacated  vacatedRing

	tick   atomic.Uint64
	nextID atomic.Uint64
}

// New creates an empty world. templates may be nil, in which case every
// room is generated.
func New(logger *zap.Logger, templates TemplateSource, config Config) *World {
	w := &World{
		log:       logger,
		templates: templates,
		rng:       rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		entities:  slab.NewRecycler[Entity](config.ChunkSize, config.MaxEntityChunks),
	}
	w.accounts = newAccounts(slab.NewRecycler[Account](64, config.MaxAccountChunks))
	return w
}

// Tick returns the current simulation tick.
func (w *World) Tick() uint64 { return w.tick.Load() }

// Advance moves the simulation one tick forward.
func (w *World) Advance() uint64 { return w.tick.Add(1) }

// NewEntityID hands out the next entity id. Ids start at 1.
func (w *World) NewEntityID() uint64 { return w.nextID.Add(1) }

func (w *World) Accounts() *Accounts { return &w.accounts }

// Room returns the room at c, if it has been generated.
func (w *World) Room(c Coords) (*Room, bool) {
	r := w.rooms.lookup(c)
	return r, r != nil
}

// Rooms iterates over every generated room.
func (w *World) Rooms() iter.Seq[*Room] { return w.rooms.all }

func (w *World) RoomCount() int { return w.rooms.count }

// ChunkStats reports the entity chunk usage.
func (w *World) ChunkStats() (allocated, free int) { return w.entities.Stats() }

// AddEntity copies e into room r, giving it an id if it has none. The
// returned pointer is valid until the next change to r.
func (w *World) AddEntity(r *Room, e Entity) (*Entity, error) {
	if e.ID == 0 {
		e.ID = w.NewEntityID()
	}
	e.Room = r.Coords
	i, err := r.entities.Push(e)
	if err != nil {
		return nil, err
	}
	return r.entities.At(i), nil
}

// DeleteEntity removes the entity id from r by moving the room's last
// entity into its slot. The departure is remembered for delta updates.
func (w *World) DeleteEntity(r *Room, id uint64) (Entity, bool) {
	i := r.entities.Index(func(e *Entity) bool { return e.ID == id })
	if i < 0 {
		return Entity{}, false
	}
	e := r.entities.SwapRemove(i)
	w.vacated.record(vacated{id: id, tick: w.Tick(), room: r.Coords})
	return e, true
}

// MoveEntity transfers entity id from one room to another, placing it
// at (x, y) and marking it changed.
func (w *World) MoveEntity(from, to *Room, id uint64, x, y uint8) (*Entity, error) {
	e, ok := w.DeleteEntity(from, id)
	if !ok {
		return nil, ErrNoEntity
	}
	e.X, e.Y = x, y
	e.Changed = true
	return w.AddEntity(to, e)
}

// FindEntity searches every room for id.
func (w *World) FindEntity(id uint64) (*Room, *Entity) {
	for r := range w.Rooms() {
		if e := r.Find(id); e != nil {
			return r, e
		}
	}
	return nil, nil
}

// ClearChanged resets the dirty flag of every entity.
func (w *World) ClearChanged() {
	for r := range w.rooms.all {
		for _, e := range r.entities.All() {
			e.Changed = false
		}
	}
}

// Snapshot is a copy of a room that can be read without the world lock.
type Snapshot struct {
	Coords   Coords
	Class    RoomClass
	Tick     uint64
	Tiles    [RoomTileCount]TileType
	Entities []Entity
	// Names holds the account name of each character, parallel to Entities.
	Names [][]byte
	// Deleted lists the entities that left the room recently.
	Deleted []uint64
}

// Snapshot copies room c into s, reusing its slices. It reports false if
// the room does not exist.
func (w *World) Snapshot(c Coords, s *Snapshot) bool {
	r, ok := w.Room(c)
	if !ok {
		return false
	}
	s.Coords = r.Coords
	s.Class = r.Class
	s.Tick = w.Tick()
	s.Tiles = r.Tiles
	s.Entities = r.entities.Values(s.Entities[:0])
	s.Names = s.Names[:0]
	for i := range s.Entities {
		var name []byte
		if s.Entities[i].Type == EntityCharacter {
			if acct := w.accounts.ByCharacter(s.Entities[i].ID); acct != nil {
				name = acct.Name
			}
		}
		s.Names = append(s.Names, name)
	}
	var since uint64
	if s.Tick > DeletionWindow {
		since = s.Tick - DeletionWindow
	}
	s.Deleted = w.vacated.collect(c, since, s.Deleted[:0])
	return true
}
