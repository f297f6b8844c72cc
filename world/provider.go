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
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrTemplateNotExist is returned when no hand-authored room exists for
// the requested coordinates.
var ErrTemplateNotExist = errors.New("room template does not exist")

// roomBlobSize is the length of a binary room file: one byte per tile,
// then one entity type byte per tile.
const roomBlobSize = 2 * RoomTileCount

// Template is a hand-authored room layout.
type Template struct {
	Class    RoomClass
	Tiles    [RoomTileCount]TileType
	Entities []TemplateEntity
}

type TemplateEntity struct {
	X    uint8      `yaml:"x"`
	Y    uint8      `yaml:"y"`
	Type EntityType `yaml:"type"`
}

// TemplateSource looks up hand-authored rooms by coordinates.
type TemplateSource interface {
	Template(c Coords) (*Template, error)
}

// DirProvider reads templates from a directory holding files named
// <x>_<y>_<z>.room or <x>_<y>_<z>.yaml.
type DirProvider struct {
	dir string
}

func NewProvider(dir string) DirProvider {
	return DirProvider{dir: dir}
}

func (p DirProvider) Template(c Coords) (*Template, error) {
	base := filepath.Join(p.dir, fmt.Sprintf("%d_%d_%d", c.X, c.Y, c.Z))

	data, err := os.ReadFile(base + ".room")
	if err == nil {
		return DecodeRoomBlob(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read room file: %w", err)
	}

	data, err = os.ReadFile(base + ".yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrTemplateNotExist
	} else if err != nil {
		return nil, fmt.Errorf("read room yaml: %w", err)
	}
	return DecodeRoomYAML(data)
}

// DecodeRoomBlob parses the binary room format. Entities are placed on the
// tile whose index carries their type byte.
func DecodeRoomBlob(data []byte) (*Template, error) {
	if len(data) < roomBlobSize {
		return nil, fmt.Errorf("room blob too short: %d bytes", len(data))
	}
	t := &Template{Class: ClassIndoor}
	for i := 0; i < RoomTileCount; i++ {
		t.Tiles[i] = TileType(data[i])
		if et := EntityType(data[RoomTileCount+i]); et != EntityNull {
			t.Entities = append(t.Entities, TemplateEntity{
				X:    uint8(i % RoomWidth),
				Y:    uint8(i / RoomWidth),
				Type: et,
			})
		}
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// EncodeRoomBlob is the inverse of DecodeRoomBlob. Only the last entity
// on a tile survives, since the format holds one per tile.
func EncodeRoomBlob(t *Template) []byte {
	data := make([]byte, roomBlobSize)
	for i, tile := range t.Tiles {
		data[i] = byte(tile)
	}
	for _, e := range t.Entities {
		data[RoomTileCount+TileIndex(e.X, e.Y)] = byte(e.Type)
	}
	return data
}

// RoomYAML is the text form of a template. Tiles start as Fill, get an
// optional Border and then the individual overrides.
type RoomYAML struct {
	Class    RoomClass        `yaml:"class,omitempty"`
	Fill     TileType         `yaml:"fill"`
	Border   TileType         `yaml:"border,omitempty"`
	Tiles    []TilePatch      `yaml:"tiles,omitempty"`
	Entities []TemplateEntity `yaml:"entities,omitempty"`
}

type TilePatch struct {
	X    uint8    `yaml:"x"`
	Y    uint8    `yaml:"y"`
	Tile TileType `yaml:"tile"`
}

func DecodeRoomYAML(data []byte) (*Template, error) {
	var doc RoomYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse room yaml: %w", err)
	}
	return doc.Template()
}

// Template expands the document into a full tile grid.
func (doc *RoomYAML) Template() (*Template, error) {
	t := &Template{Class: doc.Class, Entities: doc.Entities}
	if t.Class == ClassInvalid {
		t.Class = ClassIndoor
	}
	r := Room{}
	r.fill(doc.Fill)
	if doc.Border != TileNull {
		r.setBorder(doc.Border)
	}
	for _, p := range doc.Tiles {
		if p.X >= RoomWidth || p.Y >= RoomHeight {
			return nil, fmt.Errorf("tile (%d,%d) outside the room", p.X, p.Y)
		}
		r.Tiles[TileIndex(p.X, p.Y)] = p.Tile
	}
	t.Tiles = r.Tiles
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) validate() error {
	for i, tile := range t.Tiles {
		if !tile.Valid() {
			return fmt.Errorf("tile %d: %v", i, tile)
		}
	}
	for _, e := range t.Entities {
		if e.X >= RoomWidth || e.Y >= RoomHeight {
			return fmt.Errorf("%v at (%d,%d) outside the room", e.Type, e.X, e.Y)
		}
		if !e.Type.Valid() || e.Type == EntityNull {
			return fmt.Errorf("invalid entity type %v at (%d,%d)", e.Type, e.X, e.Y)
		}
	}
	return nil
}
