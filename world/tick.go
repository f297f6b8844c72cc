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

// Burn applies one point of continuous damage to every hp-regenerating
// entity that shares a tile with a damage dealer and still has hp left.
// It returns the number of hits.
func (w *World) Burn() (hits int) {
	var victims []uint64
	for r := range w.rooms.all {
		for _, src := range r.entities.All() {
			if !src.Features.Has(FeatureDealsContinuousDamage) {
				continue
			}
			victims = r.EntitiesAt(src.X, src.Y, victims[:0])
			for _, id := range victims {
				e := r.Find(id)
				if e == nil || !e.Features.Has(FeatureRegensHp) || e.HP == 0 {
					continue
				}
				e.HP--
				e.Changed = true
				hits++
			}
		}
	}
	return
}

// Regen heals every hp-regenerating entity by one point toward its max.
func (w *World) Regen() (healed int) {
	for r := range w.rooms.all {
		for _, e := range r.entities.All() {
			if e.Features.Has(FeatureRegensHp) && e.HP < e.MaxHP {
				e.HP++
				e.Changed = true
				healed++
			}
		}
	}
	return
}
