// Message Dispatcher
//
// Copyright (c) 2024, 2025
//
// This file is part of go-dama.
//
// go-dama is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-dama is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-dama. If not, see
// <http://www.gnu.org/licenses/>

package server

import (
	"time"

	"go-dama/proto"
)

// reject is a handler outcome that turns into one ERROR message for
// the offending client.
type reject struct {
	code   string
	detail string
}

func fail(code string) *reject          { return &reject{code: code} }
func failf(code, detail string) *reject { return &reject{code: code, detail: detail} }

// Rejections that reflect server capacity or credential state rather
// than a misbehaving client are exempt from the invalid-message
// meter.  Every other error attributed to a session counts.
var lenientCodes = map[string]bool{
	"SERVER_FULL":        true,
	"ROOM_FULL":          true,
	"ROOM_NOT_AVAILABLE": true,
	"ALREADY_LOGGED_IN":  true,
	"TOKEN_NOT_FOUND":    true,
	"TOKEN_EXPIRED":      true,
}

// Message types a client may send before it has a session.  BYE is
// included so that saying goodbye twice stays idempotent.
var sessionless = map[string]bool{
	"LOGIN":     true,
	"PING":      true,
	"RECONNECT": true,
	"BYE":       true,
}

// Handle processes one inbound datagram under the server lock: parse,
// refresh the owning session, dispatch, emit, sweep.
func (s *Server) Handle(ep Endpoint, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	defer s.sweep(now)

	s.conf.Debug.Printf("<- %s: %q", ep, raw)

	// UDP reads are capped by the receive buffer, but WebSocket
	// frames arrive whole and need the same bound.
	if len(raw) > proto.MaxDatagram {
		s.send(ep, proto.Error(0, "INVALID_FORMAT", "Message too long"))
		if p := s.sessionFor(ep); p != nil {
			s.registerInvalid(p, now)
		}
		return
	}

	m, err := proto.Parse(raw)
	if err != nil {
		s.send(ep, proto.Error(0, "INVALID_FORMAT", "Malformed message"))
		if p := s.sessionFor(ep); p != nil {
			s.registerInvalid(p, now)
		}
		return
	}

	// Any datagram from a bound endpoint is a sign of life.  A
	// paused session resuming traffic on its old endpoint comes
	// back without a RECONNECT, and traffic from a seat of an
	// outage-frozen room restarts its clock.
	p := s.sessionFor(ep)
	if p != nil {
		p.LastSeen = now
		p.Endpoint = ep
		if p.Paused {
			s.revive(0, p, now)
		} else {
			s.unfreezeLiveRooms(p, now)
		}
	}

	if p == nil && !sessionless[m.Type] {
		s.send(ep, proto.Error(m.ID, "NOT_LOGGED_IN", ""))
		return
	}

	var rej *reject
	switch m.Type {
	case "LOGIN":
		rej = s.handleLogin(ep, p, m, now)
	case "PING":
		s.send(ep, proto.Format(m.ID, "PONG"))
	case "RECONNECT":
		rej = s.handleReconnect(ep, m, now)
	case "BYE":
		rej = s.handleBye(ep, p, m)
	case "CONFIG_ACK":
		p.ConfigAcked = true
	case "LIST_ROOMS":
		rej = s.handleListRooms(p, m)
	case "CREATE_ROOM":
		rej = s.handleCreateRoom(p, m)
	case "JOIN_ROOM":
		rej = s.handleJoinRoom(p, m, now)
	case "LEAVE_ROOM":
		rej = s.handleLeaveRoom(p, m)
	case "MOVE":
		rej = s.handleMove(p, m, now)
	case "LEGAL_MOVES":
		rej = s.handleLegalMoves(p, m)
	default:
		rej = fail("UNSUPPORTED_TYPE")
	}

	if rej == nil {
		return
	}
	s.send(ep, proto.Error(m.ID, rej.code, rej.detail))
	if p != nil && !lenientCodes[rej.code] {
		// registerInvalid may erase the session, do it last.
		s.registerInvalid(p, now)
	}
}

// sessionFor resolves the session bound to an endpoint, if any.
func (s *Server) sessionFor(ep Endpoint) *Player {
	token, ok := s.endpoints[ep.String()]
	if !ok {
		return nil
	}
	return s.players[token]
}
