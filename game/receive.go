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
	"net"
	"net/netip"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"WorldCore/internal/slab"
	"WorldCore/protocol"
)

// maxTrackedSenders bounds the per-address limiter map. When it fills up
// the map is simply reset.
const maxTrackedSenders = 1024

// receiveLoop decodes incoming datagrams into the command queue. It
// returns nil once the game shuts down, or the error that broke the
// socket.
func (g *Game) receiveLoop(ctx context.Context) error {
	log := g.log.Named("recv")
	buf := make([]byte, 2048)
	limiters := make(map[netip.AddrPort]*rate.Limiter)

	for {
		n, from, err := g.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("receive: %w", err)
		}
		from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
		if n > protocol.MaxDatagram {
			log.Debug("Drop oversized datagram", zap.Stringer("addr", from), zap.Int("len", n))
			continue
		}

		lim, ok := limiters[from]
		if !ok {
			if len(limiters) >= maxTrackedSenders {
				clear(limiters)
			}
			lim = g.config.InboundLimiter.Limiter()
			limiters[from] = lim
		}
		if !lim.Allow() {
			log.Debug("Drop datagram over rate limit", zap.Stringer("addr", from))
			continue
		}

		cmd, err := protocol.DecodeCommand(g.strings, from, buf[:n])
		if errors.Is(err, slab.ErrExhausted) {
			log.Warn("String pool exhausted, dropping login", zap.Stringer("addr", from))
			continue
		} else if err != nil {
			log.Debug("Drop malformed datagram",
				zap.Stringer("addr", from),
				zap.Int("len", n),
				zap.Error(err))
			continue
		}
		if !g.commands.Push(cmd) {
			cmd.Release(g.strings)
			return nil
		}
	}
}
