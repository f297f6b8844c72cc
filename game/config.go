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
	"time"

	"golang.org/x/time/rate"

	"WorldCore/world"
)

// Config is read from config.toml. Keys missing from the file keep the
// values of DefaultConfig.
type Config struct {
	// UDP address the server listens on, e.g. "0.0.0.0:7777".
	ListenAddress string `toml:"listen-address"`
	MaxClients    int    `toml:"max-clients"`

	// Directory holding hand-authored <x>_<y>_<z>.room and .yaml files.
	RoomTemplateDir string `toml:"room-template-dir"`
	// Seed of the terrain generator. 0 picks one at startup.
	WorldSeed uint64 `toml:"world-seed"`

	EntityChunkSize  int `toml:"entity-chunk-size"`
	MaxEntityChunks  int `toml:"max-entity-chunks"`
	MaxAccountChunks int `toml:"max-account-chunks"`
	MaxStringChunks  int `toml:"max-string-chunks"`

	GameTick      duration `toml:"game-tick"`
	SendTick      duration `toml:"send-tick"`
	BurnInterval  duration `toml:"burn-interval"`
	RegenInterval duration `toml:"regen-interval"`
	// Ticks of silence after which a client is dropped.
	ClientTimeout uint64 `toml:"client-timeout-ticks"`

	CommandQueueLen  int `toml:"command-queue-len"`
	OutgoingQueueLen int `toml:"outgoing-queue-len"`

	// InboundLimiter caps how many datagrams one address may send.
	InboundLimiter Limiter `toml:"inbound-limiter"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddress:    "0.0.0.0:7777",
		MaxClients:       16,
		RoomTemplateDir:  "assets/rooms",
		EntityChunkSize:  64,
		MaxEntityChunks:  1 << 16,
		MaxAccountChunks: 1 << 10,
		MaxStringChunks:  1 << 12,
		GameTick:         duration{125 * time.Millisecond},
		SendTick:         duration{250 * time.Millisecond},
		BurnInterval:     duration{time.Second},
		RegenInterval:    duration{3 * time.Second},
		ClientTimeout:    24,
		CommandQueueLen:  64,
		OutgoingQueueLen: 64,
		InboundLimiter:   Limiter{Every: duration{10 * time.Millisecond}, N: 32},
	}
}

func (c *Config) worldConfig() world.Config {
	return world.Config{
		ChunkSize:        c.EntityChunkSize,
		MaxEntityChunks:  c.MaxEntityChunks,
		MaxAccountChunks: c.MaxAccountChunks,
		Seed:             c.WorldSeed,
	}
}

// Limiter allows N events at once, refilled one every Every.
type Limiter struct {
	Every duration `toml:"every"`
	N     int
}

func (l *Limiter) Limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.Every.Duration), l.N)
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

