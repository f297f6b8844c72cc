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

import (
	"fmt"
	"iter"
	"strings"

	"WorldCore/internal/slab"
)

const (
	RoomWidth     = 30
	RoomHeight    = 20
	RoomTileCount = RoomWidth * RoomHeight
)

// TileType is the floor of a single grid cell.
type TileType uint8

const (
	TileNull TileType = iota
	TileDirt
	TileShortGrass
	TileTallGrass
	TileStoneFloor
	TileSolidStone
	TileGravel
	TileWater
	TileStaircaseDown
	TileStaircaseUp
	TileHole
	tileTypeCount
)

var tileNames = [tileTypeCount]string{
	"null", "dirt", "short-grass", "tall-grass", "stone-floor",
	"solid-stone", "gravel", "water", "staircase-down", "staircase-up", "hole",
}

func (t TileType) String() string {
	if t < tileTypeCount {
		return tileNames[t]
	}
	return fmt.Sprintf("TileType(%d)", uint8(t))
}

func (t TileType) Valid() bool { return t < tileTypeCount }

func (t TileType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown tile type %d", uint8(t))
	}
	return []byte(tileNames[t]), nil
}

func (t *TileType) UnmarshalText(text []byte) error {
	for i, name := range tileNames {
		if strings.EqualFold(name, string(text)) {
			*t = TileType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tile type %q", text)
}

// RoomClass is the terrain theme of a room.
type RoomClass uint8

const (
	ClassInvalid RoomClass = iota
	ClassDesert
	ClassScrub
	ClassGrassland
	ClassForest
	ClassIndoor
	ClassUnderground
	roomClassCount
)

var classNames = [roomClassCount]string{
	"invalid", "desert", "scrub", "grassland", "forest", "indoor", "underground",
}

func (c RoomClass) String() string {
	if c < roomClassCount {
		return classNames[c]
	}
	return fmt.Sprintf("RoomClass(%d)", uint8(c))
}

func (c RoomClass) MarshalText() ([]byte, error) {
	if c >= roomClassCount {
		return nil, fmt.Errorf("unknown room class %d", uint8(c))
	}
	return []byte(classNames[c]), nil
}

func (c *RoomClass) UnmarshalText(text []byte) error {
	for i, name := range classNames {
		if strings.EqualFold(name, string(text)) {
			*c = RoomClass(i)
			return nil
		}
	}
	return fmt.Errorf("unknown room class %q", text)
}

// Coords addresses a room in the world grid.
type Coords struct{ X, Y, Z int32 }

func (c Coords) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

// Room is one screen of the world: a fixed tile grid plus the entities
// standing on it.
type Room struct {
	Coords
	Class RoomClass
	Tiles [RoomTileCount]TileType

	used     bool
	entities slab.List[Entity]
}

// TileIndex converts a grid position to an index into Tiles.
func TileIndex(x, y uint8) int { return int(y)*RoomWidth + int(x) }

func (r *Room) Tile(x, y uint8) TileType { return r.Tiles[TileIndex(x, y)] }

// Len returns the number of entities in the room.
func (r *Room) Len() int { return r.entities.Len() }

// Entities iterates over the entities of the room in pool order.
func (r *Room) Entities() iter.Seq2[int, *Entity] { return r.entities.All() }

// Find returns the entity with the given id, or nil.
func (r *Room) Find(id uint64) *Entity {
	i := r.entities.Index(func(e *Entity) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	return r.entities.At(i)
}

// BlockedAt reports whether a blocking entity stands on (x, y).
func (r *Room) BlockedAt(x, y uint8) bool {
	for _, e := range r.entities.All() {
		if e.X == x && e.Y == y && e.Type.Blocking() {
			return true
		}
	}
	return false
}

// EntitiesAt appends the ids of every entity on (x, y) to dst.
func (r *Room) EntitiesAt(x, y uint8, dst []uint64) []uint64 {
	for _, e := range r.entities.All() {
		if e.X == x && e.Y == y {
			dst = append(dst, e.ID)
		}
	}
	return dst
}

func (r *Room) fill(t TileType) {
	for i := range r.Tiles {
		r.Tiles[i] = t
	}
}

func (r *Room) setBorder(t TileType) {
	for x := 0; x < RoomWidth; x++ {
		r.Tiles[x] = t
		r.Tiles[x+(RoomHeight-1)*RoomWidth] = t
	}
	for y := 0; y < RoomHeight; y++ {
		r.Tiles[y*RoomWidth] = t
		r.Tiles[RoomWidth-1+y*RoomWidth] = t
	}
}
