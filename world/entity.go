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
	"strings"
)

// EntityType identifies what an entity is. The numeric values are part of
// the wire format.
type EntityType uint8

const (
	EntityNull EntityType = iota
	EntityWall
	EntityDoor
	EntityCharacter
	EntityTree
	EntityBush
	EntityWood
	EntityRock
	EntityBoulder
	EntityScroll
	EntityPortal
	EntityHole
	EntityChair
	EntityFire
	EntityFountain
	EntityBasket
	EntityGravestone
	EntityMoney
	EntityFairy
	EntityGenie
	EntityElf
	EntityMermaid
	EntityVampire
	EntitySuperVillain
	EntityTroll
	EntityWrestlingFight
	EntityBoar
	EntityScorpion
	EntityDragon
	EntityWolf
	EntityTiger
	EntityRabbit
	EntityMushroom
	entityTypeCount
)

var entityNames = [entityTypeCount]string{
	"null", "wall", "door", "character", "tree", "bush", "wood", "rock",
	"boulder", "scroll", "portal", "hole", "chair", "fire", "fountain",
	"basket", "gravestone", "money", "fairy", "genie", "elf", "mermaid",
	"vampire", "super-villain", "troll", "wrestling-fight", "boar",
	"scorpion", "dragon", "wolf", "tiger", "rabbit", "mushroom",
}

func (t EntityType) String() string {
	if t < entityTypeCount {
		return entityNames[t]
	}
	return fmt.Sprintf("EntityType(%d)", uint8(t))
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool { return t < entityTypeCount }

func (t EntityType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown entity type %d", uint8(t))
	}
	return []byte(entityNames[t]), nil
}

func (t *EntityType) UnmarshalText(text []byte) error {
	for i, name := range entityNames {
		if strings.EqualFold(name, string(text)) {
			*t = EntityType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown entity type %q", text)
}

// Blocking reports whether an entity of this type occupies its tile so
// that nothing can walk onto it.
func (t EntityType) Blocking() bool {
	switch t {
	case EntityWall, EntityRock, EntityBoulder, EntityTree, EntityFountain,
		EntityFairy, EntityGenie, EntityElf, EntityMermaid, EntityVampire,
		EntitySuperVillain, EntityTroll, EntityWrestlingFight, EntityBoar,
		EntityScorpion, EntityDragon, EntityWolf, EntityTiger, EntityRabbit:
		return true
	}
	return false
}

// Features is a bit-set of behaviours. Bit i is 1<<i on the wire.
type Features uint64

const (
	FeatureWalksAround Features = 1 << iota
	FeatureRegensHp
	FeatureRegensMp
	FeatureKnowsSpells
	FeatureCanFight
	FeatureDealsContinuousDamage
)

func (f Features) Has(flag Features) bool { return f&flag != 0 }

// FeaturesOf derives the behaviour set of an entity type.
func FeaturesOf(t EntityType) Features {
	switch t {
	case EntityCharacter:
		return FeatureWalksAround | FeatureRegensHp | FeatureRegensMp | FeatureKnowsSpells | FeatureCanFight
	case EntityFire:
		return FeatureDealsContinuousDamage
	}
	return 0
}

type SpellType uint8

const (
	SpellInvalid SpellType = iota
	SpellMagicMissile
	SpellShield
	SpellSilence
	SpellEmpower
	SpellFireball
	SpellManaRain
	SpellHeal
	SpellEarthenWall
)

// Spells is a bit-set indexed by SpellType.
type Spells uint64

func (s Spells) With(spell SpellType) Spells { return s | 1<<spell }
func (s Spells) Has(spell SpellType) bool { return s&(1<<spell) != 0 }

// Entity is a plain record stored by value in a room's pool. Nothing may
// keep a pointer to it after the world lock is released.
type Entity struct {
	ID       uint64
	X, Y     uint8
	Type     EntityType
	Features Features

	HP, MaxHP uint16
	MP, MaxMP uint16
	Wins      uint16
	Color     uint8
	Spells    Spells

	// Changed marks the entity for the next delta update.
	Changed bool
	Room    Coords
}

// NewEntity returns an entity of type t at (x, y) with its features set.
// The id is assigned when it is added to a room.
func NewEntity(t EntityType, x, y uint8) Entity {
	return Entity{Type: t, X: x, Y: y, Features: FeaturesOf(t)}
}
