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
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"WorldCore/client"
	"WorldCore/protocol"
	"WorldCore/queue"
	"WorldCore/strpool"
	"WorldCore/world"
)

// Transport is the datagram socket the server talks through.
// *net.UDPConn satisfies it.
type Transport interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	Close() error
}

type Game struct {
	log    *zap.Logger
	config Config
	conn   Transport

	strings  *strpool.Pool
	commands *queue.Queue[protocol.Command]
	outgoing *queue.Queue[protocol.Datagram]

	// Lock order: clients, then world.
	clients *client.Table
	world   *world.World

	lastBurn, lastRegen time.Time
}

// NewGame builds the server state and generates the starting rooms.
func NewGame(log *zap.Logger, config Config, conn Transport) (*Game, error) {
	if config.WorldSeed == 0 {
		config.WorldSeed = rand.Uint64()
	}
	var templates world.TemplateSource
	if config.RoomTemplateDir != "" {
		templates = world.NewProvider(config.RoomTemplateDir)
	}
	g := &Game{
		log:      log.Named("game"),
		config:   config,
		conn:     conn,
		strings:  strpool.New(config.MaxStringChunks),
		commands: queue.New[protocol.Command](config.CommandQueueLen),
		outgoing: queue.New[protocol.Datagram](config.OutgoingQueueLen),
		clients:  client.NewTable(log.Named("client"), config.MaxClients),
		world:    world.New(log.Named("world"), templates, config.worldConfig()),
	}

	for _, c := range world.StartupRooms {
		if _, err := g.world.GenerateRoom(c); err != nil {
			return nil, fmt.Errorf("generate startup rooms: %w", err)
		}
	}
	g.log.Info("World ready",
		zap.Int("rooms", g.world.RoomCount()),
		zap.Uint64("seed", config.WorldSeed))
	return g, nil
}

// Run drives the game, send, write and receive loops until ctx is
// cancelled or the transport fails. It closes the transport on return.
func (g *Game) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	for _, loop := range []func(context.Context){
		g.gameLoop,
		g.sendLoop,
		g.writeLoop,
		func(ctx context.Context) { cancel(g.receiveLoop(ctx)) },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx)
		}()
	}

	<-ctx.Done()
	g.log.Info("Shutting down")
	g.conn.Close()
	g.commands.Close()
	g.outgoing.Close()
	wg.Wait()

	if err := context.Cause(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// fatal stops the process. It is reserved for states the world cannot
// recover from, such as running out of room slots or entity chunks.
func (g *Game) fatal(msg string, err error) {
	g.log.Fatal(msg, zap.Error(err))
}

// pacer runs a loop at a fixed period. Work that overruns the period is
// not made up for.
type pacer struct {
	period time.Duration
	start  time.Time
}

// next sleeps out the rest of the current period and reports whether the
// loop should run again.
func (p *pacer) next(ctx context.Context) bool {
	if !p.start.IsZero() {
		if rest := p.period - time.Since(p.start); rest > 0 {
			t := time.NewTimer(rest)
			select {
			case <-ctx.Done():
				t.Stop()
				return false
			case <-t.C:
			}
		}
	}
	p.start = time.Now()
	return ctx.Err() == nil
}
