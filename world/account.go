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
	"bytes"

	"WorldCore/internal/slab"
)

// Account is a registered player. Name and Password are owned by the
// store once committed and never modified afterwards.
type Account struct {
	ID       uint64
	Name     []byte
	Password []byte
	// Room is where the account's character was last seen.
	Room Coords
	// Character is the bound entity id, 0 when the account has none.
	Character uint64
}

// Accounts is an append-only store of accounts in creation order.
type Accounts struct {
	list slab.List[Account]
}

func newAccounts(rec *slab.Recycler[Account]) Accounts {
	return Accounts{list: slab.NewList(rec)}
}

func (a *Accounts) Len() int { return a.list.Len() }

// Create appends a new account with the next sequential id. The name and
// password are copied.
func (a *Accounts) Create(name, password []byte, room Coords) (*Account, error) {
	acct := Account{
		ID:       uint64(a.list.Len()),
		Name:     bytes.Clone(name),
		Password: bytes.Clone(password),
		Room:     room,
	}
	i, err := a.list.Push(acct)
	if err != nil {
		return nil, err
	}
	return a.list.At(i), nil
}

func (a *Accounts) find(pred func(*Account) bool) *Account {
	if i := a.list.Index(pred); i >= 0 {
		return a.list.At(i)
	}
	return nil
}

func (a *Accounts) ByID(id uint64) *Account {
	if id >= uint64(a.list.Len()) {
		return nil
	}
	return a.list.At(int(id))
}

func (a *Accounts) ByName(name []byte) *Account {
	return a.find(func(acct *Account) bool { return bytes.Equal(acct.Name, name) })
}

// ByCharacter returns the account bound to entity id, or nil.
func (a *Accounts) ByCharacter(id uint64) *Account {
	if id == 0 {
		return nil
	}
	return a.find(func(acct *Account) bool { return acct.Character == id })
}
