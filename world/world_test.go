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
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"WorldCore/internal/slab"
)

type fixedTemplates map[Coords]*Template

func (m fixedTemplates) Template(c Coords) (*Template, error) {
	if t, ok := m[c]; ok {
		return t, nil
	}
	return nil, ErrTemplateNotExist
}

func emptyTemplate() *Template {
	t := &Template{Class: ClassIndoor}
	for i := range t.Tiles {
		t.Tiles[i] = TileStoneFloor
	}
	return t
}

func newTestWorld(t *testing.T, templates TemplateSource) *World {
	return New(zaptest.NewLogger(t), templates, Config{
		ChunkSize:        64,
		MaxEntityChunks:  1 << 14,
		MaxAccountChunks: 16,
		Seed:             1,
	})
}

func TestRoomHash(t *testing.T) {
	for _, tc := range []struct {
		c    Coords
		want uint32
	}{
		{Coords{0, 0, 0}, 11},
		{Coords{1, 0, 0}, 12},
		{Coords{-1, 0, 0}, 10},
		{Coords{0, 1, 0}, 4},
		{Coords{0, -1, 0}, 18},
		{Coords{0, 0, -1}, 7},
		{Coords{0, 2, 0}, 253},
	} {
		if got := roomHash(tc.c); got != tc.want {
			t.Errorf("roomHash(%v) = %d, want %d", tc.c, got, tc.want)
		}
	}
}

func TestGenerateRoom_Idempotent(t *testing.T) {
	w := newTestWorld(t, nil)
	c := Coords{3, -2, 1}

	r, err := w.GenerateRoom(c)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := w.Room(c); !ok || got != r || got.Coords != c {
		t.Fatalf("Room(%v) = %v, %v", c, got, ok)
	}
	entities := r.Len()
	tiles := r.Tiles
	allocated, _ := w.ChunkStats()

	again, err := w.GenerateRoom(c)
	if err != nil {
		t.Fatal(err)
	}
	if again != r || r.Len() != entities || r.Tiles != tiles || w.RoomCount() != 1 {
		t.Fatal("second GenerateRoom changed the table")
	}
	if a, _ := w.ChunkStats(); a != allocated {
		t.Errorf("chunks allocated %d -> %d", allocated, a)
	}
}

func TestRoom_MissingIsNotOrigin(t *testing.T) {
	w := newTestWorld(t, nil)
	if _, ok := w.Room(Coords{}); ok {
		t.Fatal("origin exists before generation")
	}
	if _, err := w.GenerateRoom(Coords{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Room(Coords{0, 0, 0}); !ok {
		t.Fatal("origin missing after generation")
	}
	if _, ok := w.Room(Coords{0, 0, 1}); ok {
		t.Fatal("ungenerated room reported present")
	}
}

func TestGenerateRoom_Overflow(t *testing.T) {
	w := newTestWorld(t, nil)
	// (7k, k, 0) all hash to the origin's slot.
	for k := int32(0); k <= overflowSlots; k++ {
		if _, err := w.GenerateRoom(Coords{7 * k, k, 0}); err != nil {
			t.Fatalf("room %d: %v", k, err)
		}
	}
	for k := int32(0); k <= overflowSlots; k++ {
		c := Coords{7 * k, k, 0}
		if r, ok := w.Room(c); !ok || r.Coords != c {
			t.Fatalf("lookup %v failed", c)
		}
	}
	_, err := w.GenerateRoom(Coords{7 * (overflowSlots + 1), overflowSlots + 1, 0})
	if !errors.Is(err, ErrRoomTableFull) {
		t.Fatalf("err = %v, want ErrRoomTableFull", err)
	}
}

func TestGenerateRoom_Template(t *testing.T) {
	tmpl := emptyTemplate()
	tmpl.Tiles[TileIndex(4, 5)] = TileWater
	tmpl.Entities = []TemplateEntity{{X: 2, Y: 3, Type: EntityFire}, {X: 7, Y: 1, Type: EntityWall}}
	w := newTestWorld(t, fixedTemplates{{0, 0, 0}: tmpl})

	r, err := w.GenerateRoom(Coords{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Class != ClassIndoor || r.Tile(4, 5) != TileWater || r.Tile(0, 0) != TileStoneFloor {
		t.Fatalf("template not applied: class %v", r.Class)
	}
	if r.Len() != 2 {
		t.Fatalf("entities = %d", r.Len())
	}
	for _, e := range r.Entities() {
		if e.ID == 0 || e.Room != r.Coords || e.Features != FeaturesOf(e.Type) {
			t.Errorf("bad entity %+v", *e)
		}
	}
	if !r.BlockedAt(7, 1) || r.BlockedAt(2, 3) {
		t.Error("blocking does not follow entity type")
	}
}

func TestGenerateRoom_ContinuesNeighbourTerrain(t *testing.T) {
	w := newTestWorld(t, nil)
	tmpl := emptyTemplate()
	tmpl.Class = ClassUnderground
	w.templates = fixedTemplates{{0, 0, -1}: tmpl}
	if _, err := w.GenerateRoom(Coords{0, 0, -1}); err != nil {
		t.Fatal(err)
	}
	r, err := w.GenerateRoom(Coords{1, 0, -1})
	if err != nil {
		t.Fatal(err)
	}
	if r.Class != ClassUnderground {
		t.Fatalf("class = %v, want underground", r.Class)
	}
	if r.Tile(0, 0) != TileSolidStone || r.Tile(RoomWidth-1, RoomHeight-1) != TileSolidStone {
		t.Error("underground room has no stone border")
	}
}

func TestTransition(t *testing.T) {
	for _, tc := range []struct {
		prev RoomClass
		roll int
		want RoomClass
	}{
		{ClassDesert, 0, ClassDesert},
		{ClassDesert, 17, ClassScrub},
		{ClassDesert, 19, ClassGrassland},
		{ClassScrub, 16, ClassDesert},
		{ClassScrub, 18, ClassGrassland},
		{ClassScrub, 19, ClassForest},
		{ClassGrassland, 15, ClassDesert},
		{ClassGrassland, 16, ClassScrub},
		{ClassGrassland, 19, ClassForest},
		{ClassGrassland, 3, ClassGrassland},
		{ClassForest, 17, ClassScrub},
		{ClassForest, 18, ClassGrassland},
		{ClassForest, 15, ClassForest},
		{ClassUnderground, 19, ClassUnderground},
		{ClassIndoor, 5, ClassGrassland},
		{ClassIndoor, 19, ClassGrassland},
		{ClassInvalid, 15, ClassDesert},
		{ClassInvalid, 16, ClassScrub},
		{ClassInvalid, 19, ClassForest},
		{ClassInvalid, 3, ClassGrassland},
	} {
		if got := transition(tc.prev, tc.roll); got != tc.want {
			t.Errorf("transition(%v, %d) = %v, want %v", tc.prev, tc.roll, got, tc.want)
		}
	}
}

func TestGenerateRoom_EntitiesInsideBorder(t *testing.T) {
	w := newTestWorld(t, nil)
	for _, c := range StartupRooms {
		r, err := w.GenerateRoom(c)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range r.Entities() {
			if e.X < 1 || e.X > RoomWidth-2 || e.Y < 1 || e.Y > RoomHeight-2 {
				t.Fatalf("%v at (%d,%d) in %v", e.Type, e.X, e.Y, c)
			}
		}
	}
	if w.RoomCount() != len(StartupRooms) {
		t.Errorf("rooms = %d", w.RoomCount())
	}
}

func TestDeleteEntity(t *testing.T) {
	w := newTestWorld(t, fixedTemplates{{}: emptyTemplate()})
	r, _ := w.GenerateRoom(Coords{})
	var ids []uint64
	for i := 0; i < 70; i++ {
		e, err := w.AddEntity(r, NewEntity(EntityRock, uint8(i%RoomWidth), 1))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}
	if r.entities.Chunks() != 2 {
		t.Fatalf("chunks = %d", r.entities.Chunks())
	}

	w.Advance()
	if _, ok := w.DeleteEntity(r, ids[3]); !ok {
		t.Fatal("delete failed")
	}
	if r.Find(ids[3]) != nil {
		t.Fatal("deleted entity still present")
	}
	if r.Find(ids[69]) == nil || r.Len() != 69 {
		t.Fatal("swap lost the last entity")
	}
	if _, ok := w.DeleteEntity(r, ids[3]); ok {
		t.Fatal("double delete succeeded")
	}

	for _, id := range ids[60:] {
		w.DeleteEntity(r, id)
	}
	if r.entities.Chunks() != 1 {
		t.Errorf("emptied chunk not released, chunks = %d", r.entities.Chunks())
	}

	var s Snapshot
	w.Snapshot(r.Coords, &s)
	if len(s.Deleted) != 11 {
		t.Errorf("recent deletions = %d, want 11", len(s.Deleted))
	}
	for i := 0; i <= DeletionWindow; i++ {
		w.Advance()
	}
	w.Snapshot(r.Coords, &s)
	if len(s.Deleted) != 0 {
		t.Errorf("stale deletions reported: %v", s.Deleted)
	}
}

func TestMoveEntity(t *testing.T) {
	w := newTestWorld(t, fixedTemplates{{}: emptyTemplate(), {1, 0, 0}: emptyTemplate()})
	a, _ := w.GenerateRoom(Coords{})
	b, _ := w.GenerateRoom(Coords{1, 0, 0})
	e, _ := w.AddEntity(a, NewEntity(EntityCharacter, RoomWidth-1, 4))
	id := e.ID

	moved, err := w.MoveEntity(a, b, id, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if moved.ID != id || moved.Room != b.Coords || moved.X != 0 || !moved.Changed {
		t.Fatalf("moved = %+v", *moved)
	}
	if a.Find(id) != nil {
		t.Fatal("entity left behind")
	}
	if r, found := w.FindEntity(id); r != b || found == nil {
		t.Fatal("FindEntity does not see the move")
	}
	if _, err := w.MoveEntity(a, b, id, 0, 0); !errors.Is(err, ErrNoEntity) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddEntity_Exhausted(t *testing.T) {
	w := New(zaptest.NewLogger(t), fixedTemplates{{}: emptyTemplate()}, Config{
		ChunkSize: 4, MaxEntityChunks: 1, MaxAccountChunks: 1,
	})
	r, err := w.GenerateRoom(Coords{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := w.AddEntity(r, NewEntity(EntityBush, 1, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := w.AddEntity(r, NewEntity(EntityBush, 1, 1)); !errors.Is(err, slab.ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
}

func TestBurnAndRegen(t *testing.T) {
	w := newTestWorld(t, fixedTemplates{{}: emptyTemplate()})
	r, _ := w.GenerateRoom(Coords{})

	hero := NewEntity(EntityCharacter, 5, 5)
	hero.HP, hero.MaxHP = 5, 10
	h, _ := w.AddEntity(r, hero)
	heroID := h.ID
	bystander := NewEntity(EntityCharacter, 6, 5)
	bystander.HP, bystander.MaxHP = 10, 10
	b, _ := w.AddEntity(r, bystander)
	bystanderID := b.ID
	w.AddEntity(r, NewEntity(EntityFire, 5, 5))
	w.AddEntity(r, NewEntity(EntityBush, 5, 5))

	if hits := w.Burn(); hits != 1 {
		t.Fatalf("hits = %d", hits)
	}
	if e := r.Find(heroID); e.HP != 4 || !e.Changed {
		t.Fatalf("hero = %+v", *e)
	}
	if e := r.Find(bystanderID); e.HP != 10 || e.Changed {
		t.Fatalf("bystander burned: %+v", *e)
	}

	w.ClearChanged()
	if healed := w.Regen(); healed != 1 {
		t.Fatalf("healed = %d", healed)
	}
	if e := r.Find(heroID); e.HP != 5 || !e.Changed {
		t.Fatalf("hero = %+v", *e)
	}

	r.Find(heroID).HP = 0
	if hits := w.Burn(); hits != 0 {
		t.Errorf("burned an entity with no hp left")
	}
}

func TestSnapshot(t *testing.T) {
	w := newTestWorld(t, fixedTemplates{{}: emptyTemplate()})
	r, _ := w.GenerateRoom(Coords{})
	e, _ := w.AddEntity(r, NewEntity(EntityCharacter, 1, 1))
	id := e.ID
	w.AddEntity(r, NewEntity(EntityTree, 2, 2))
	acct, _ := w.Accounts().Create([]byte("ada"), []byte("pw"), r.Coords)
	acct.Character = id

	var s Snapshot
	if !w.Snapshot(Coords{}, &s) {
		t.Fatal("no snapshot")
	}
	if len(s.Entities) != 2 || len(s.Names) != 2 {
		t.Fatalf("entities %d names %d", len(s.Entities), len(s.Names))
	}
	for i, e := range s.Entities {
		if e.ID == id && string(s.Names[i]) != "ada" {
			t.Errorf("character name = %q", s.Names[i])
		}
		if e.ID != id && s.Names[i] != nil {
			t.Errorf("tree has a name")
		}
	}
	s.Entities[0].HP = 99
	if r.Find(s.Entities[0].ID).HP == 99 {
		t.Error("snapshot aliases the room")
	}
	if w.Snapshot(Coords{9, 9, 9}, &s) {
		t.Error("snapshot of a missing room")
	}
}

func TestAccounts(t *testing.T) {
	w := newTestWorld(t, nil)
	accts := w.Accounts()
	for i, name := range []string{"a", "b", "c"} {
		acct, err := accts.Create([]byte(name), []byte("pw"+name), Coords{})
		if err != nil {
			t.Fatal(err)
		}
		if acct.ID != uint64(i) {
			t.Fatalf("id = %d, want %d", acct.ID, i)
		}
	}
	if a := accts.ByName([]byte("b")); a == nil || a.ID != 1 || string(a.Password) != "pwb" {
		t.Fatalf("ByName(b) = %+v", a)
	}
	if accts.ByName([]byte("nobody")) != nil {
		t.Fatal("found a missing account")
	}
	accts.ByID(2).Character = 42
	if a := accts.ByCharacter(42); a == nil || a.ID != 2 {
		t.Fatal("ByCharacter failed")
	}
	if accts.ByCharacter(0) != nil || accts.ByID(3) != nil {
		t.Fatal("lookup of nothing returned an account")
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	tmpl := emptyTemplate()
	tmpl.Tiles[0] = TileHole
	tmpl.Entities = []TemplateEntity{{X: 29, Y: 19, Type: EntityDoor}}
	if err := os.WriteFile(filepath.Join(dir, "0_0_0.room"), EncodeRoomBlob(tmpl), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := "class: underground\nfill: stone-floor\nborder: solid-stone\n" +
		"tiles:\n  - {x: 3, y: 3, tile: water}\n" +
		"entities:\n  - {x: 4, y: 4, type: fire}\n"
	if err := os.WriteFile(filepath.Join(dir, "-1_2_0.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProvider(dir)

	got, err := p.Template(Coords{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Class != ClassIndoor || got.Tiles != tmpl.Tiles || len(got.Entities) != 1 || got.Entities[0] != tmpl.Entities[0] {
		t.Fatalf("blob template = %+v", got)
	}

	got, err = p.Template(Coords{-1, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got.Class != ClassUnderground || got.Tiles[0] != TileSolidStone ||
		got.Tiles[TileIndex(3, 3)] != TileWater || got.Tiles[TileIndex(2, 2)] != TileStoneFloor {
		t.Fatalf("yaml template = %+v", got)
	}
	if len(got.Entities) != 1 || got.Entities[0].Type != EntityFire {
		t.Fatalf("yaml entities = %+v", got.Entities)
	}

	if _, err := p.Template(Coords{5, 5, 5}); !errors.Is(err, ErrTemplateNotExist) {
		t.Fatalf("err = %v", err)
	}
	if _, err := DecodeRoomBlob(make([]byte, 10)); err == nil {
		t.Fatal("short blob accepted")
	}
}
