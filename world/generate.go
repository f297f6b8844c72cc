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
	"errors"
	"fmt"

	"go.uber.org/zap"

	"WorldCore/internal/slab"
)

// GenerateRoom makes sure a room exists at c and returns it. A
// hand-authored template is used when the TemplateSource has one;
// otherwise the terrain continues from the nearest neighbour.
// Generating an existing room is a no-op.
func (w *World) GenerateRoom(c Coords) (*Room, error) {
	if r, ok := w.Room(c); ok {
		return r, nil
	}
	r, err := w.rooms.reserve(c)
	if err != nil {
		return nil, fmt.Errorf("generate room %v: %w", c, err)
	}
	logger := w.log.With(zap.Stringer("room", c))

	*r = Room{Coords: c, entities: slab.NewList(w.entities)}
	tmpl, err := w.template(c)
	if err != nil {
		logger.Warn("Room template unusable, generating instead", zap.Error(err))
	}
	if tmpl != nil {
		err = w.applyTemplate(r, tmpl)
	} else {
		err = w.populate(r, w.nextClass(w.nearestClass(c)))
	}
	if err != nil {
		r.entities.Release()
		*r = Room{}
		return nil, fmt.Errorf("generate room %v: %w", c, err)
	}

	r.used = true
	w.rooms.count++
	logger.Debug("Generated room",
		zap.Stringer("class", r.Class),
		zap.Int("entities", r.Len()))
	return r, nil
}

func (w *World) template(c Coords) (*Template, error) {
	if w.templates == nil {
		return nil, nil
	}
	t, err := w.templates.Template(c)
	if errors.Is(err, ErrTemplateNotExist) {
		return nil, nil
	}
	return t, err
}

func (w *World) applyTemplate(r *Room, t *Template) error {
	r.Class = t.Class
	r.Tiles = t.Tiles
	for _, te := range t.Entities {
		if _, err := w.AddEntity(r, NewEntity(te.Type, te.X, te.Y)); err != nil {
			return err
		}
	}
	return nil
}

// nearestClass returns the class of the first generated neighbour, looking
// north, south, east and west in that order.
func (w *World) nearestClass(c Coords) RoomClass {
	for _, n := range [...]Coords{
		{c.X, c.Y - 1, c.Z},
		{c.X, c.Y + 1, c.Z},
		{c.X + 1, c.Y, c.Z},
		{c.X - 1, c.Y, c.Z},
	} {
		if r, ok := w.Room(n); ok {
			return r.Class
		}
	}
	return ClassInvalid
}

// nextClass rolls the terrain class of a new room from its neighbour's.
func (w *World) nextClass(prev RoomClass) RoomClass {
	return transition(prev, w.rng.IntN(20))
}

// transition is the terrain drift table, indexed by a roll in [0, 20).
// A room with no neighbour drifts as if it bordered grassland; one next
// to an indoor room always starts as grassland.
func transition(prev RoomClass, roll int) RoomClass {
	switch prev {
	case ClassDesert:
		switch roll {
		case 17, 18:
			return ClassScrub
		case 19:
			return ClassGrassland
		}
		return ClassDesert
	case ClassScrub:
		switch roll {
		case 16:
			return ClassDesert
		case 17, 18:
			return ClassGrassland
		case 19:
			return ClassForest
		}
		return ClassScrub
	case ClassGrassland, ClassInvalid:
		switch roll {
		case 15:
			return ClassDesert
		case 16, 17:
			return ClassScrub
		case 18, 19:
			return ClassForest
		}
		return ClassGrassland
	case ClassForest:
		switch roll {
		case 16, 17:
			return ClassScrub
		case 18, 19:
			return ClassGrassland
		}
		return ClassForest
	case ClassUnderground:
		return ClassUnderground
	}
	return ClassGrassland
}

func (w *World) populate(r *Room, class RoomClass) error {
	r.Class = class
	switch class {
	case ClassIndoor:
		r.fill(TileStoneFloor)
	case ClassUnderground:
		r.fill(TileStoneFloor)
		w.scatterTiles(r, TileGravel, w.rng.IntN(RoomTileCount/3)+5)
		r.setBorder(TileSolidStone)
	case ClassDesert:
		r.fill(TileDirt)
		w.scatterTiles(r, TileGravel, w.rng.IntN(RoomTileCount/3)+5)
		w.scatterTiles(r, TileShortGrass, w.rng.IntN(RoomTileCount/3)+1)
		return w.scatterEntities(r, EntityBoulder, w.rng.IntN(32)+2)
	case ClassScrub:
		r.fill(TileShortGrass)
		w.scatterTiles(r, TileGravel, w.rng.IntN(RoomTileCount/4)+1)
		w.scatterTiles(r, TileTallGrass, w.rng.IntN(RoomTileCount/3)+4)
		return w.scatterEntities(r, EntityBush, w.rng.IntN(RoomTileCount)/3+RoomTileCount/5)
	case ClassGrassland:
		r.fill(TileTallGrass)
		w.scatterTiles(r, TileShortGrass, RoomTileCount/3+4)
		if err := w.scatterEntities(r, EntityBush, w.rng.IntN(RoomTileCount)/4+RoomTileCount/6); err != nil {
			return err
		}
		return w.scatterEntities(r, EntityTree, w.rng.IntN(RoomTileCount)/4+RoomTileCount/6)
	case ClassForest:
		r.fill(TileShortGrass)
		w.scatterTiles(r, TileDirt, w.rng.IntN(RoomTileCount/3)+5)
		if w.rng.IntN(6) == 0 {
			w.pond(r)
		}
		if err := w.scatterEntities(r, EntityTree, w.rng.IntN(RoomTileCount)/2+RoomTileCount/4); err != nil {
			return err
		}
		if err := w.scatterEntities(r, EntityBush, w.rng.IntN(RoomTileCount)/6); err != nil {
			return err
		}
		return w.scatterEntities(r, EntityWood, w.rng.IntN(RoomTileCount)/8)
	default:
		return fmt.Errorf("cannot populate %v room", class)
	}
	return nil
}

// scatterTiles paints n random tiles below the top row and above the
// bottom row.
func (w *World) scatterTiles(r *Room, t TileType, n int) {
	for i := 0; i < n; i++ {
		r.Tiles[RoomWidth+1+w.rng.IntN(RoomWidth*(RoomHeight-2))] = t
	}
}

// scatterEntities places n entities of type t away from the room edges.
func (w *World) scatterEntities(r *Room, t EntityType, n int) error {
	for i := 0; i < n; i++ {
		x := uint8(w.rng.IntN(RoomWidth-2) + 1)
		y := uint8(w.rng.IntN(RoomHeight-2) + 1)
		if _, err := w.AddEntity(r, NewEntity(t, x, y)); err != nil {
			return err
		}
	}
	return nil
}

// pond puts a small patch of water somewhere in the room.
func (w *World) pond(r *Room) {
	x := uint8(w.rng.IntN(RoomWidth - 3))
	y := uint8(w.rng.IntN(RoomHeight - 3))
	for _, p := range [...][2]uint8{
		{x + 1, y}, {x + 2, y},
		{x, y + 1}, {x + 1, y + 1}, {x + 2, y + 1},
		{x + 1, y + 2}, {x + 2, y + 2},
	} {
		r.Tiles[TileIndex(p[0], p[1])] = TileWater
	}
}
