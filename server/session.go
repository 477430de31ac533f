// Session Registry
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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go-dama"
	"go-dama/proto"
)

// Player is a logical session.  It survives endpoint changes: the
// token is the authoritative key, the endpoint binding is an index.
type Player struct {
	ID       int
	Nick     string
	Token    string
	Endpoint Endpoint

	Connected      bool
	Paused         bool // in the reconnect grace window
	LastSeen       time.Time
	ResumeDeadline time.Time // zero while not paused

	LastMoveMsgID int // highest MOVE id applied, for dedup

	ConfigAcked    bool
	lastConfigSent time.Time

	invalidCount  int
	invalidWindow time.Time
}

const (
	maxNickLen = 64

	invalidLimit = 3
	invalidSpan  = 30 * time.Second

	configResend = 3 * time.Second
)

// newToken returns a fresh 64-bit resume token in hex.
func newToken() string {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(raw[:])
}

// checkName validates a client-supplied label (nick or room name).
// The separator can never survive parsing, but '=' would corrupt the
// key/value view of every message carrying the label.
func checkName(name string) string {
	switch {
	case name == "":
		return "Empty name"
	case len(name) > maxNickLen:
		return "Name too long"
	case strings.ContainsAny(name, ";="):
		return "Name contains reserved characters"
	}
	return ""
}

func (s *Server) handleLogin(ep Endpoint, p *Player, m *proto.Message, now time.Time) *reject {
	if len(m.Params) < 1 {
		return failf("INVALID_FORMAT", "Missing nick")
	}
	nick := strings.TrimSpace(m.Params[0])
	if detail := checkName(nick); detail != "" {
		return failf("INVALID_FORMAT", detail)
	}

	// A repeated LOGIN from a bound endpoint is idempotent as long
	// as the nick matches.
	if p != nil {
		if p.Nick != nick {
			return fail("ALREADY_LOGGED_IN")
		}
		s.send(ep, proto.Format(m.ID, "LOGIN_OK",
			fmt.Sprintf("player=%d", p.ID), "token="+p.Token))
		s.sendConfig(p, now)
		return nil
	}

	if len(s.players) >= s.conf.MaxPlayers {
		return fail("SERVER_FULL")
	}

	p = &Player{
		ID:        s.nextPlayerID,
		Nick:      nick,
		Token:     newToken(),
		Endpoint:  ep,
		Connected: true,
		LastSeen:  now,
	}
	s.nextPlayerID++
	s.players[p.Token] = p
	s.endpoints[ep.String()] = p.Token
	s.conf.Log.Printf("Player %d (%s) logged in from %s", p.ID, p.Nick, ep)

	s.send(ep, proto.Format(m.ID, "LOGIN_OK",
		fmt.Sprintf("player=%d", p.ID), "token="+p.Token))
	s.sendConfig(p, now)
	return nil
}

// sendConfig pushes the server parameters the client has to know.
// Resent from the sweep every 3 seconds until acknowledged.
func (s *Server) sendConfig(p *Player, now time.Time) {
	s.send(p.Endpoint, proto.Format(0, "CONFIG",
		fmt.Sprintf("turnTimeoutMs=%d", s.conf.TurnTimeoutMs)))
	p.lastConfigSent = now
}

func (s *Server) handleReconnect(ep Endpoint, m *proto.Message, now time.Time) *reject {
	if len(m.Params) < 1 {
		return failf("INVALID_FORMAT", "Missing token")
	}
	token := strings.TrimSpace(m.Params[0])

	p, ok := s.players[token]
	if !ok {
		return fail("TOKEN_NOT_FOUND")
	}
	if !p.ResumeDeadline.IsZero() && now.After(p.ResumeDeadline) {
		return fail("TOKEN_EXPIRED")
	}

	// Drop stale endpoint bindings before installing the new one.
	for key, t := range s.endpoints {
		if t == token {
			delete(s.endpoints, key)
		}
	}
	s.endpoints[ep.String()] = token
	p.Endpoint = ep
	s.conf.Log.Printf("Player %d (%s) reconnected from %s", p.ID, p.Nick, ep)

	s.send(ep, proto.Format(m.ID, "RECONNECT_OK"))
	s.revive(m.ID, p, now)
	return nil
}

// revive restores a session to connected and unfreezes every room
// where both seats are back.  Rooms still missing a seat remind the
// revived player that the game stays paused.
func (s *Server) revive(id int, p *Player, now time.Time) {
	p.Connected = true
	p.Paused = false
	p.ResumeDeadline = time.Time{}
	p.LastSeen = now

	for _, r := range s.roomsOf(p) {
		if r.Status != dama.InGame {
			continue
		}
		if s.allSeatsConnected(r) {
			s.resumeRoom(r, now)
			s.broadcastGameState(id, r, now)
		} else {
			s.sendGamePaused(r, p)
		}
	}
}

func (s *Server) handleBye(ep Endpoint, p *Player, m *proto.Message) *reject {
	if p != nil {
		s.dropPlayer(m.ID, p, dama.ReasonOpponentLeft)
		s.conf.Log.Printf("Player %d (%s) left", p.ID, p.Nick)
	}
	s.send(ep, proto.Format(m.ID, "BYE_OK"))
	return nil
}

// registerInvalid advances the 3-strikes meter and drops the session
// when it fills within the window.
func (s *Server) registerInvalid(p *Player, now time.Time) {
	if p.invalidCount == 0 || now.Sub(p.invalidWindow) > invalidSpan {
		p.invalidCount = 1
		p.invalidWindow = now
		return
	}
	p.invalidCount++
	if p.invalidCount < invalidLimit {
		return
	}
	s.conf.Log.Printf("Dropping player %d (%s): too many invalid messages",
		p.ID, p.Nick)
	s.dropPlayer(0, p, dama.ReasonOpponentLeft)
}

// dropPlayer erases a session and cleans up every room referencing
// it, in one atomic step.  Co-occupants of in-game rooms are told the
// game is over with REASON and themselves as winner.
func (s *Server) dropPlayer(id int, p *Player, reason string) {
	for _, r := range s.roomsOf(p) {
		s.vacateSeat(id, r, p, reason)
	}
	for key, t := range s.endpoints {
		if t == p.Token {
			delete(s.endpoints, key)
		}
	}
	delete(s.players, p.Token)
}
